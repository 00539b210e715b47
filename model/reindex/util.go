package reindex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/appbaseio/migrator/errors"
)

var reindexedPattern = regexp.MustCompile(`_reindexed_[0-9]+$`)

// ReindexedName calculates from the name the number of times an index has
// been reindexed to generate the successive name for the index. For an
// index named "twitter" it returns "twitter_reindexed_1", and for an index
// named "foo_reindexed_3" it returns "foo_reindexed_4".
func ReindexedName(index string) (string, error) {
	if index == "" {
		return "", fmt.Errorf("cannot derive a reindexed name from an empty index name")
	}
	if !reindexedPattern.MatchString(index) {
		return index + "_reindexed_1", nil
	}

	tokens := strings.Split(index, "_")
	size := len(tokens)
	number, err := strconv.Atoi(tokens[size-1])
	if err != nil {
		return "", err
	}
	tokens[size-1] = strconv.Itoa(number + 1)
	return strings.Join(tokens, "_"), nil
}

// inProgress tracks, by owner, the indices and aliases currently taking part
// in a migration so that two migrations never touch the same names.
var (
	inProgress      = make(map[string][]string)
	inProgressMutex sync.Mutex
	ownerSeq        uint64
)

// newOwner returns an owner key no other running migration holds. name is
// kept as a prefix so that conflicts report who holds a name.
func newOwner(name string) string {
	return fmt.Sprintf("%s#%d", name, atomic.AddUint64(&ownerSeq, 1))
}

// acquire registers names as being migrated by owner. It fails with a
// *errors.MigrationInProgressError if any of them already is held by another
// owner. Names an owner already holds may be acquired again.
func acquire(owner string, names ...string) error {
	inProgressMutex.Lock()
	defer inProgressMutex.Unlock()

	for other, busy := range inProgress {
		if other == owner {
			continue
		}
		for _, b := range busy {
			for _, n := range names {
				if n == b {
					return errors.NewMigrationInProgressError(n, ownerName(other))
				}
			}
		}
	}
	inProgress[owner] = append(inProgress[owner], names...)
	return nil
}

// ownerName strips the sequence number newOwner adds.
func ownerName(owner string) string {
	if i := strings.LastIndex(owner, "#"); i > 0 {
		return owner[:i]
	}
	return owner
}

// release unregisters every name held by owner.
func release(owner string) {
	inProgressMutex.Lock()
	delete(inProgress, owner)
	inProgressMutex.Unlock()
}

// IsInProgress reports whether name is part of a running migration.
func IsInProgress(name string) bool {
	inProgressMutex.Lock()
	defer inProgressMutex.Unlock()
	for _, busy := range inProgress {
		for _, b := range busy {
			if b == name {
				return true
			}
		}
	}
	return false
}
