// Command flacstore-web is the HTTP ingress (C10): multipart upload,
// JSON download kickoff, status polling, and file serving around the
// Blockchain Storage Engine core. Grounded on the teacher's cmd/web
// structure (gin.ReleaseMode, cors.Config, embedded-fallback HTML).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/BitcoinPay-Labs/flacstore/internal/applog"
	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
	"github.com/BitcoinPay-Labs/flacstore/internal/config"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/watcher"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const materializeDir = "data/downloads"

func main() {
	log := applog.For("web")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	store, err := jobstore.Open(cfg.DBPath())
	if err != nil {
		log.WithError(err).Fatal("open job store")
	}
	defer store.Close()

	gatewayFor := func(network string) chain.Gateway {
		primary, fallback := cfg.BackendURL(network)
		return chain.ForNetwork(network, primary, fallback, cfg.BackendAPIKey(), applog.For("gateway"))
	}

	w := &watcher.Watcher{
		Store:          store,
		Cfg:            cfg,
		GatewayFor:     gatewayFor,
		Log:            applog.For("watcher"),
		MaterializeDir: materializeDir,
		MimeType:       "audio/flac",
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := w.Run(ctx); err != nil {
			log.WithError(err).Error("watcher stopped")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handlers{
		cfg:            cfg,
		store:          store,
		gatewayFor:     gatewayFor,
		log:            applog.For("http"),
		materializeDir: materializeDir,
	}

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/upload", h.handleUpload)
	r.POST("/api/download", h.handleDownload)
	r.GET("/api/status/:job_id", h.handleStatus)

	if _, err := os.Stat("web/build"); err == nil {
		r.Static("/static", "web/build/static")
		r.StaticFile("/", "web/build/index.html")
	} else {
		r.GET("/", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html", []byte(fallbackHTML))
		})
	}
	r.Static("/downloads", materializeDir)

	addr := cfg.BindAddr()
	fmt.Printf("http://%s\n", addr)
	if err := r.Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

const fallbackHTML = `<!DOCTYPE html>
<html>
<head><title>flacstore</title></head>
<body>
<h1>flacstore</h1>
<p>POST /api/upload (multipart: file, title?, artist?, cover?, lyrics?, network?)</p>
<p>POST /api/download (json: {"txid":"...","network":"mainnet"})</p>
<p>GET /api/status/:job_id</p>
</body>
</html>`
