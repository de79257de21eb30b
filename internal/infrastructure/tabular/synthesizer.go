// Package tabular builds table skeletons: an embeddable markdown body plus
// an xlsx workbook written next to the other workspace artifacts.
package tabular

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/okolin/scribe/internal/core/domain"
)

var defaultColumns = []string{"Aspect", "Detail", "Notes"}

const skeletonRows = 4

type Synthesizer struct {
	dir string
}

// New roots workbook output at dir, creating it on first use.
func New(dir string) *Synthesizer {
	return &Synthesizer{dir: dir}
}

func (s *Synthesizer) Synthesize(ctx context.Context, topic string) (domain.TableRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.TableRef{}, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.TableRef{}, fmt.Errorf("empty table topic")
	}

	ref := domain.TableRef{Markdown: buildMarkdown(topic)}

	sheetPath, err := s.writeWorkbook(topic)
	if err != nil {
		// The markdown skeleton still embeds; only the workbook is lost.
		return ref, fmt.Errorf("write workbook: %w", err)
	}
	ref.SheetPath = sheetPath
	return ref, nil
}

func buildMarkdown(topic string) string {
	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(defaultColumns, " | "))
	b.WriteString(" |\n|")
	b.WriteString(strings.Repeat(" --- |", len(defaultColumns)))
	b.WriteString("\n")
	for i := 1; i <= skeletonRows; i++ {
		fmt.Fprintf(&b, "| %s: point %d |  |  |\n", topic, i)
	}
	return b.String()
}

func (s *Synthesizer) writeWorkbook(topic string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create tables dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, header := range defaultColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return "", err
		}
	}
	for row := 1; row <= skeletonRows; row++ {
		cell, err := excelize.CoordinatesToCellName(1, row+1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheet, cell, fmt.Sprintf("%s: point %d", topic, row)); err != nil {
			return "", err
		}
	}
	if err := f.SetCellValue(sheet, "E1", "generated"); err != nil {
		return "", err
	}
	if err := f.SetCellValue(sheet, "F1", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", err
	}

	name := fmt.Sprintf("table_%s.xlsx", uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}
