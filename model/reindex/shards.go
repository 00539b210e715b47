package reindex

import (
	"github.com/appbaseio/migrator/errors"
)

// assertAllShardsOk protects against reading from, or copying, an index
// with missing shards, which would silently lose documents. Responses
// without shard statistics pass.
func assertAllShardsOk(op string, shards *ShardsInfo) error {
	if shards == nil {
		return nil
	}
	failed := shards.Total - shards.Successful
	if failed > 0 {
		return errors.NewShardFailureError(op, failed, shards.Total)
	}
	return nil
}
