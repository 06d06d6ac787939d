// Package api talks to an upstream live-timing service. Imports pull the
// four raw documents a race is built from; exports push a finished race
// archive back out.
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
)

// ExportMetadata describes a race archive being uploaded.
type ExportMetadata struct {
	RaceName      string
	SeasonYear    int
	Round         int
	TotalDuration float64
}

// Client handles communication with the timing service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new timing service client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the timing service is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchDocuments downloads the raw documents for one round. A missing
// race control or track status feed is tolerated; lap and position data
// are required.
func (c *Client) FetchDocuments(year, round int) (database.RawDocuments, error) {
	var docs database.RawDocuments
	base := fmt.Sprintf("%s/api/v1/season/%d/round/%d", c.baseURL, year, round)

	var err error
	if docs.LapData, err = c.fetch(base + "/lap_data"); err != nil {
		return docs, fmt.Errorf("lap data: %w", err)
	}
	if docs.Spatial, err = c.fetch(base + "/position_data"); err != nil {
		return docs, fmt.Errorf("position data: %w", err)
	}
	if docs.RaceControl, err = c.fetch(base + "/race_control"); err != nil {
		docs.RaceControl = nil
	}
	if docs.TrackStatus, err = c.fetch(base + "/track_status"); err != nil {
		docs.TrackStatus = nil
	}
	return docs, nil
}

func (c *Client) fetch(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Upload sends a gzipped race archive to the timing service.
func (c *Client) Upload(filePath string, meta ExportMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("secret", c.apiKey)
		_ = writer.WriteField("filename", filepath.Base(filePath))
		_ = writer.WriteField("raceName", meta.RaceName)
		_ = writer.WriteField("seasonYear", fmt.Sprintf("%d", meta.SeasonYear))
		_ = writer.WriteField("round", fmt.Sprintf("%d", meta.Round))
		_ = writer.WriteField("totalDuration", fmt.Sprintf("%f", meta.TotalDuration))

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/races/add", pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
