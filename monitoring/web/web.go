// Package web embeds the dashboard pages for the monitoring server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

//go:embed dist/*
var dashboardAssets embed.FS

// AssetDirEnv names the environment variable that, when set to a directory,
// overrides the embedded dashboard with files from disk. Editing the
// dashboard then takes effect without recompiling the run.
const AssetDirEnv = "MICROBATCH_MONITOR_ASSET_DIR"

// Assets returns the dashboard file system.
func Assets() http.FileSystem {
	dir := os.Getenv(AssetDirEnv)
	if dir != "" {
		fmt.Fprintf(os.Stderr, "Serving the dashboard from %s\n", dir)
		return http.Dir(dir)
	}

	sub, err := fs.Sub(dashboardAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}
