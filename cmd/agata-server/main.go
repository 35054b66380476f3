package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/glucolab/agata/internal/app"
	"github.com/glucolab/agata/internal/log"
	"github.com/glucolab/agata/internal/restserver"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	listenAddr := flag.String("listen-addr", "", "Address to listen on (default: all interfaces)")
	port := flag.Int("port", 8080, "HTTP port")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate (optional)")
	tlsKey := flag.String("tls-key", "", "Path to TLS key (optional)")
	profile := flag.String("profile", "diabetes", "Default glycemic target profile")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agata-server %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := restserver.Config{
		ListenAddr:     *listenAddr,
		Port:           *port,
		TLSCertPath:    *tlsCert,
		TLSKeyPath:     *tlsKey,
		DefaultProfile: *profile,
	}

	application := app.New(cfg, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
