// package formatter renders stored playlists in various formats (plain text, CSV, Markdown, JSON and terminal tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/ui"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatText, FormatCSV, FormatMarkdown, FormatJSON}

var extensions = map[Format]string{
	FormatText:     "txt",
	FormatCSV:      "csv",
	FormatMarkdown: "md",
	FormatJSON:     "json",
	FormatTable:    "txt",
}

// ParseFormat parses a format name; "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "md":
		return FormatMarkdown, nil
	case "txt", "plain":
		return FormatText, nil
	case FormatText, FormatCSV, FormatMarkdown, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used when writing f.
func (f Format) Extension() string {
	return extensions[f]
}

// ExportToCSV converts playlists to CSV with columns: ID, Name, Owner, SpotifyID, ImageURL, CreatedAt
func ExportToCSV(playlists []models.PlaylistWithOwner) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Owner", "SpotifyID", "ImageURL", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range playlists {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.OwnerName,
			p.SpotifyID,
			p.ImgURL,
			p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts playlists to a Markdown document headed by title.
//
// Playlists with an image get a thumbnail line under their heading.
func ExportToMarkdown(title string, playlists []models.PlaylistWithOwner) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Playlists**: %d\n\n", len(playlists))

	for _, p := range playlists {
		fmt.Fprintf(&buf, "## %s\n\n", p.Name)
		if p.ImgURL != "" {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", p.Name, p.ImgURL)
		}
		fmt.Fprintf(&buf, "- **Owner**: %s\n", p.OwnerName)
		if p.SpotifyID != "" {
			fmt.Fprintf(&buf, "- **Spotify**: https://open.spotify.com/playlist/%s\n", p.SpotifyID)
		}
		fmt.Fprintf(&buf, "- **Added**: %s\n\n", p.CreatedAt.Format("Jan 2, 2006"))
	}

	return buf.Bytes(), nil
}

// ExportToText converts playlists to numbered plain text lines
func ExportToText(playlists []models.PlaylistWithOwner) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlists: %d\n\n", len(playlists))
	for i, p := range playlists {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, p.Name, p.OwnerName)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts playlists to indented JSON. A nil slice is written as [].
func ExportToJSON(playlists []models.PlaylistWithOwner) ([]byte, error) {
	if playlists == nil {
		playlists = []models.PlaylistWithOwner{}
	}

	data, err := json.MarshalIndent(playlists, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToTable renders playlists as a bordered terminal table.
func ExportToTable(playlists []models.PlaylistWithOwner) ([]byte, error) {
	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.OwnerName,
			p.SpotifyID,
			p.CreatedAt.Format("2006-01-02"),
		})
	}

	out := ui.Table([]string{"ID", "Name", "Owner", "Spotify ID", "Added"}, rows)
	return []byte(out + "\n"), nil
}

// Export renders playlists in format f. The title is only used by Markdown.
func Export(f Format, title string, playlists []models.PlaylistWithOwner) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(playlists)
	case FormatMarkdown:
		return ExportToMarkdown(title, playlists)
	case FormatJSON:
		return ExportToJSON(playlists)
	case FormatTable:
		return ExportToTable(playlists)
	case FormatText:
		return ExportToText(playlists)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// Write renders playlists to w.
func Write(w io.Writer, f Format, title string, playlists []models.PlaylistWithOwner) error {
	data, err := Export(f, title, playlists)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s output: %w", f, err)
	}
	return nil
}

// WriteExport writes playlists to a file and returns its path.
//
// Defaults to playlists.{ext} in the working directory.
func WriteExport(path string, f Format, title string, playlists []models.PlaylistWithOwner) (string, error) {
	if path == "" {
		path = "playlists." + f.Extension()
	}

	data, err := Export(f, title, playlists)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
