// Command glovebox serves Javadoc HTML out of Maven-published
// -javadoc.jar archives over HTTP.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/EngineHub/remote-glovebox/internal/config"
	"github.com/EngineHub/remote-glovebox/internal/diskcache"
	"github.com/EngineHub/remote-glovebox/internal/httpapi"
	"github.com/EngineHub/remote-glovebox/internal/jarmanager"
	"github.com/EngineHub/remote-glovebox/internal/logger"
	"github.com/EngineHub/remote-glovebox/internal/resolver"
	"github.com/EngineHub/remote-glovebox/internal/transport"
)

var (
	flagHost            string
	flagPort            string
	flagMaven           string
	flagJarDir          string
	flagJarMemCacheSize int64
	flagJarFsCacheSize  int64
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "glovebox",
		Short: "A Javadoc server",
		RunE:  runServe,
	}

	root.Flags().StringVar(&flagHost, "host", "", "host to listen on (default localhost)")
	root.Flags().StringVar(&flagPort, "port", "", "port to listen on (default 8080)")
	root.Flags().StringVar(&flagMaven, "maven", "", "the URI to contact for JARs (required)")
	root.Flags().StringVar(&flagJarDir, "jar-dir", "", "directory for the on-disk JAR cache (default ./jars)")
	root.Flags().Int64Var(&flagJarMemCacheSize, "jar-mem-cache-size", 0, "byte capacity of the in-memory decompressed-JAR cache (default 100MiB)")
	root.Flags().Int64Var(&flagJarFsCacheSize, "jar-fs-cache-size", 0, "byte capacity of the on-disk raw-JAR cache (default 1GiB)")

	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.NewWithPrefix("glovebox")

	cfg, err := config.Load(flagHost, flagPort, flagMaven, flagJarDir, flagJarMemCacheSize, flagJarFsCacheSize)
	if err != nil {
		return err
	}

	httpTransport := transport.NewHTTPTransport(cfg.Maven)
	mavenResolver := resolver.New(httpTransport, log)

	diskLRU, err := diskcache.New(cfg.JarDir, cfg.JarFsCacheSize)
	if err != nil {
		return err
	}

	manager := jarmanager.New(mavenResolver, diskLRU, cfg.JarMemCacheSize, log)
	defer manager.Stop()

	server := httpapi.New(manager, log)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	log.Info("server starting", "addr", addr, "maven", cfg.Maven)
	return http.ListenAndServe(addr, server.Engine())
}
