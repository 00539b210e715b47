// Command migrate runs a single index migration operation against the
// cluster configured in the environment and prints its outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/util"
	log "github.com/sirupsen/logrus"
)

const logTag = "[migrate]"

var (
	envFile   string
	logMode   string
	op        string
	index     string
	alias     string
	dest      string
	batchSize int
	scroll    string
	script    string
	versions  string
	mappings  string
	retries   int
	timeout   time.Duration
)

func init() {
	flag.StringVar(&envFile, "env", ".env", "Path to file with environment variables to load in KEY=VALUE format")
	flag.StringVar(&logMode, "log", "", "Define to change the default log mode(error), other options are: debug(most verbose) and info")
	flag.StringVar(&op, "op", "info", "Operation to run: info, status, claim, convert, migrate or copy")
	flag.StringVar(&index, "index", "", "Index the operation applies to")
	flag.StringVar(&alias, "alias", "", "Alias the operation applies to")
	flag.StringVar(&dest, "dest", "", "Destination index of convert and copy")
	flag.IntVar(&batchSize, "batch-size", 0, "Documents per batch, defaults to MIGRATION_BATCH_SIZE")
	flag.StringVar(&scroll, "scroll", "", "Scroll keep alive of copy, defaults to MIGRATION_SCROLL_DURATION")
	flag.StringVar(&script, "script", "", "Painless script applied to every reindexed document")
	flag.StringVar(&versions, "versions", "", `Latest migration versions as JSON, e.g. {"user":"2"}, defaults to MIGRATION_VERSIONS`)
	flag.StringVar(&mappings, "mappings", "", "Mappings of the new index as JSON")
	flag.IntVar(&retries, "retries", reindex.DefaultRetries, "Retries of status when the cluster is unavailable")
	flag.DurationVar(&timeout, "timeout", 0, "Overall deadline, defaults to MIGRATION_TIMEOUT")
}

func main() {
	flag.Parse()

	envErr := util.LoadEnvFromFile(envFile)
	util.SetupLogging(logMode)
	if envErr != nil {
		log.Infoln(logTag, ": reading env file", envFile, ":", envErr)
	}

	if err := run(); err != nil {
		log.Errorln(logTag, ":", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}
	params, err := parseParams(cfg)
	if err != nil {
		return err
	}
	client, err := util.NewClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.timeout)
	defer cancel()

	out, err := execute(ctx, reindex.New(client), params)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
