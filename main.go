package main

import (
	"flag"
	"log"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/bootstrap"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		return
	}

	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
