package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/epicsum/mediasvc/internal/domain"
	"github.com/epicsum/mediasvc/internal/logger"
)

// imageRenderingPattern matches the malformed Amazon CDN segment that some
// product feeds carry, e.g.
// .../images/W/IMAGERENDERING_521856-T2/images/I/71cv73eEBWL.jpg
var imageRenderingPattern = regexp.MustCompile(`/W/IMAGERENDERING_[^/]+-[^/]+/images`)

// cleanImageURL removes the broken IMAGERENDERING segment from product image
// URLs, leaving well-formed URLs untouched.
func cleanImageURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	return imageRenderingPattern.ReplaceAllString(rawURL, "")
}

// processImages reads every CSV in the directory (sorted by name, so the
// catalog order is reproducible) and converts rows into image records.
// Rows without a name or image URL are skipped.
// Parameters:
//   - csvDir: directory of product CSV files.
// Returns:
//   - []domain.MediaRecord: image records in deterministic order.
//   - error: non-nil if the directory cannot be read.
func processImages(csvDir string) ([]domain.MediaRecord, error) {
	entries, err := os.ReadDir(csvDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv directory %s: %w", csvDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var images []domain.MediaRecord
	for _, name := range files {
		path := filepath.Join(csvDir, name)
		records, err := processImageCSV(path)
		if err != nil {
			// A single bad feed file should not abort the whole build.
			logger.Warn("Skipping csv file %s: %v", name, err)
			continue
		}
		images = append(images, records...)
		logger.Info("Processed %s: %d image records", name, len(records))
	}

	return images, nil
}

func processImageCSV(path string) ([]domain.MediaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.TrimSpace(col)] = i
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []domain.MediaRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		name := field(row, "name")
		imageURL := field(row, "image")
		if name == "" || imageURL == "" {
			continue
		}

		records = append(records, domain.MediaRecord{
			ContentType: domain.ContentTypeImage,
			Title:       name,
			Description: name,
			Link:        cleanImageURL(imageURL),
			Meta: domain.Meta{
				Category:    field(row, "main_category"),
				SubCategory: field(row, "sub_category"),
			},
		})
	}

	return records, nil
}

// videoMetadata is one entry of the video dataset metadata file.
type videoMetadata struct {
	Text                   string `json:"text"`
	HandwrittenDescription string `json:"handwritten_description"`
	FileName               string `json:"file_name"`
}

// processVideos converts the video metadata JSON into video records. The
// file name is stripped of any directory prefix and URL-encoded onto the
// base URL. Entries without a file name or description are skipped.
// Parameters:
//   - metadataPath: path to the metadata JSON file.
//   - baseURL: prefix for video links, ending in "/".
// Returns:
//   - []domain.MediaRecord: video records in metadata order.
//   - error: non-nil if the file cannot be read or parsed.
func processVideos(metadataPath, baseURL string) ([]domain.MediaRecord, error) {
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read video metadata %s: %w", metadataPath, err)
	}

	var metadata []videoMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse video metadata: %w", err)
	}

	var videos []domain.MediaRecord
	for _, item := range metadata {
		text := strings.TrimSpace(item.Text)
		description := strings.TrimSpace(item.HandwrittenDescription)
		fileName := strings.TrimSpace(item.FileName)
		if fileName == "" || description == "" {
			continue
		}

		// Drop directory prefixes like "videos/clip.mp4".
		if idx := strings.LastIndex(fileName, "/"); idx >= 0 {
			fileName = fileName[idx+1:]
		}

		title := text
		if title == "" {
			title = description
		}

		videos = append(videos, domain.MediaRecord{
			ContentType: domain.ContentTypeVideo,
			Title:       title,
			Description: description,
			Link:        baseURL + url.PathEscape(fileName),
		})
	}

	return videos, nil
}

// writeCatalog writes the unified catalog JSON. Images first, then videos,
// matching the order the embedding producer expects.
func writeCatalog(records []domain.MediaRecord, outputPath string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", outputPath, err)
	}

	return nil
}
