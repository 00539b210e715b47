package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/appbaseio/migrator/plugins"
	"github.com/appbaseio/migrator/util"
	"github.com/gorilla/mux"
	"github.com/mackerelio/go-osstat/memory"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	_ "github.com/appbaseio/migrator/plugins/migrator"
)

const logTag = "[cmd]"

var (
	envFile     string
	logMode     string
	listPlugins bool
	address     string
	port        int
	https       bool
	cpuprofile  bool
	// Version of the migrator, set during build
	Version string
)

func init() {
	flag.StringVar(&envFile, "env", ".env", "Path to file with environment variables to load in KEY=VALUE format")
	flag.StringVar(&logMode, "log", "", "Define to change the default log mode(error), other options are: debug(most verbose) and info")
	flag.BoolVar(&listPlugins, "plugins", false, "List currently registered plugins")
	flag.StringVar(&address, "addr", "0.0.0.0", "Address to serve on")
	// env port for deployments like heroku where port is dynamically assigned
	defaultPort := 8000
	if envPort := os.Getenv("PORT"); envPort != "" {
		if portValue, err := strconv.Atoi(envPort); err == nil {
			defaultPort = portValue
		}
	}
	flag.IntVar(&port, "port", defaultPort, "Port number")
	flag.BoolVar(&https, "https", false, "Starts a https server instead of a http server if true")
	flag.BoolVar(&cpuprofile, "cpuprofile", false, "write cpu profile to `file`")
}

func main() {
	flag.Parse()

	// Load all env vars from envFile
	envErr := util.LoadEnvFromFile(envFile)
	util.SetupLogging(logMode)
	if envErr != nil {
		log.Infoln(logTag, ": reading env file", envFile, ". This may happen if the environments are declared directly : ", envErr)
	}

	// add cpu profilling
	if cpuprofile {
		defer profile.Start().Stop()
	}

	if listPlugins {
		fmt.Println(plugins.ListPluginsStr())
		return
	}

	if stats, err := memory.Get(); err != nil {
		log.Warnln(logTag, ":", err)
	} else {
		log.Infoln(logTag, ": memory total", stats.Total, "bytes, available", stats.Free, "bytes")
	}
	if Version != "" {
		log.Println(logTag, ": migrator version", Version)
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if err := plugins.LoadPlugins(router); err != nil {
		log.Fatal(logTag, ": error loading plugins: ", err)
	}

	server := plugins.NewServer(router, address, port, https)
	if err := server.Start(context.Background()); err != nil {
		log.Fatal(logTag, ": ", err)
	}
}
