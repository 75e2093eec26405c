package main

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
	"github.com/BitcoinPay-Labs/flacstore/internal/config"
	"github.com/BitcoinPay-Labs/flacstore/internal/download"
	"github.com/BitcoinPay-Labs/flacstore/internal/funding"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/txbuild"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type handlers struct {
	cfg            *config.Config
	store          *jobstore.Store
	gatewayFor     func(network string) chain.Gateway
	log            *logrus.Entry
	materializeDir string
}

type uploadResponse struct {
	Success          bool   `json:"success"`
	JobID            string `json:"job_id,omitempty"`
	PaymentAddress   string `json:"payment_address,omitempty"`
	RequiredSatoshis int64  `json:"required_satoshis,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (h *handlers) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "no file provided"})
		return
	}

	filename := fileHeader.Filename
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".flac") && !strings.HasSuffix(lower, ".wav") && !strings.HasSuffix(lower, ".mp3") {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "only FLAC, WAV, and MP3 files are supported"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "failed to open upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "failed to read upload"})
		return
	}

	network := strings.ToLower(strings.TrimSpace(c.PostForm("network")))
	if network != "testnet" {
		network = "mainnet"
	}
	title := strings.TrimSpace(c.PostForm("title"))
	artist := strings.TrimSpace(c.PostForm("artist"))
	lyrics := strings.TrimSpace(c.PostForm("lyrics"))

	var cover []byte
	if coverHeader, err := c.FormFile("cover"); err == nil {
		cf, err := coverHeader.Open()
		if err == nil {
			defer cf.Close()
			cover, _ = io.ReadAll(cf)
		}
	}

	wif, address, err := txbuild.GenerateKeypair(network)
	if err != nil {
		c.JSON(http.StatusInternalServerError, uploadResponse{Success: false, Error: "failed to generate payment keypair"})
		return
	}

	feeRate := h.cfg.FeeRate()
	var required int64
	if len(data) > funding.DefaultMaxChunkSize {
		plan := funding.PlanMultiChunk(len(data), funding.DefaultMaxChunkSize, feeRate, len(cover) > 0)
		required = plan.Quote()
	} else {
		required = funding.CalculateUploadCost(len(data), feeRate)
	}

	adminPaid := c.PostForm("admin_key") != "" && c.PostForm("admin_key") == h.cfg.AdminKey() && h.cfg.AdminKey() != ""

	job := jobstore.NewUpload(jobstore.KindFlacUpload, filename, data, network, address, wif, required, title, artist, lyrics, cover, adminPaid)
	if err := h.store.Insert(job); err != nil {
		c.JSON(http.StatusInternalServerError, uploadResponse{Success: false, Error: "failed to create job"})
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Success:          true,
		JobID:            job.ID,
		PaymentAddress:   address,
		RequiredSatoshis: required,
	})
}

type downloadRequest struct {
	Txid    string `json:"txid"`
	Network string `json:"network"`
}

type downloadResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *handlers) handleDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, downloadResponse{Success: false, Error: "invalid request body"})
		return
	}
	txid := strings.TrimSpace(req.Txid)
	if len(txid) != 64 {
		c.JSON(http.StatusBadRequest, downloadResponse{Success: false, Error: "invalid txid format (must be 64 characters)"})
		return
	}
	network := strings.ToLower(strings.TrimSpace(req.Network))
	if network != "testnet" {
		network = "mainnet"
	}

	job := jobstore.NewDownload(jobstore.KindFlacDownload, txid, network)
	if err := h.store.Insert(job); err != nil {
		c.JSON(http.StatusInternalServerError, downloadResponse{Success: false, Error: "failed to create job"})
		return
	}

	go func() {
		o := &download.Orchestrator{
			Gateway:        h.gatewayFor(network),
			Store:          h.store,
			Log:            h.log,
			MaterializeDir: h.materializeDir,
		}
		if err := o.Run(context.Background(), job); err != nil {
			h.log.WithField("job_id", job.ID).WithError(err).Error("download orchestrator")
		}
	}()

	c.JSON(http.StatusOK, downloadResponse{Success: true, JobID: job.ID})
}

type statusResponse struct {
	Status       string `json:"status"`
	Progress     float64 `json:"progress"`
	Message      string `json:"message"`
	Txid         string `json:"txid,omitempty"`
	DownloadLink string `json:"download_link,omitempty"`
	Filename     string `json:"filename,omitempty"`
	TrackTitle   string `json:"track_title,omitempty"`
	Artist       string `json:"artist,omitempty"`
	CoverTxid    string `json:"cover_txid,omitempty"`
	Lyrics       string `json:"lyrics,omitempty"`
}

func (h *handlers) handleStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	job, ok, err := h.store.Get(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, statusResponse{Status: "error", Message: "database error"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, statusResponse{Status: "not_found", Message: "job not found"})
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		Status:       string(job.State),
		Progress:     job.Progress,
		Message:      job.Message,
		Txid:         job.ManifestTxid,
		DownloadLink: job.DownloadLink,
		Filename:     job.Filename,
		TrackTitle:   job.TrackTitle,
		Artist:       job.Artist,
		CoverTxid:    job.CoverTxid,
		Lyrics:       job.Lyrics,
	})
}
