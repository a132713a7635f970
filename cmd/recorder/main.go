/*
This command provides an executable version of the recorder: a reverse
proxy that forwards every request to a single backend, and records the
request body, the diagnostic output and the response body.

For the list of command line options, run:

	recorder -help

For details about the usage, please see the documentation of the root
recorder package.
*/
package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/zalando/recorder"
	"github.com/zalando/recorder/config"
)

var (
	version string
	commit  string
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	log.Infof("Recorder version %s (commit: %s)", version, commit)
	if err := recorder.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}
