package commands

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"simpus/models"
	"simpus/store"

	"github.com/spf13/cobra"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import-books",
	Short: "Bulk-import the catalog from a CSV file",
	Long: `Import books from a CSV file with the columns

  title,author,isbn,category,totalCopies,locationCode,coverUrl

A header row is skipped. Rows without a title or author are reported and
skipped; an empty totalCopies means one copy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		imported, skipped, err := importBooks(cmd.Context(), st, f)
		if err != nil {
			return err
		}
		Success("Imported %d book(s)", imported)
		if skipped > 0 {
			Warning("Skipped %d row(s)", skipped)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import (required)")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func importBooks(ctx context.Context, st *store.Store, r io.Reader) (imported, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}

		req, err := bookFromRecord(rec)
		if err != nil {
			log.Printf("line %d: %v", line, err)
			skipped++
			continue
		}
		if _, err := st.CreateBook(ctx, req); err != nil {
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	return imported, skipped, nil
}

func bookFromRecord(rec []string) (models.BookRequest, error) {
	col := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	req := models.BookRequest{
		Title:        col(0),
		Author:       col(1),
		ISBN:         col(2),
		Category:     col(3),
		TotalCopies:  1,
		LocationCode: col(5),
		CoverURL:     col(6),
	}
	if req.Title == "" || req.Author == "" {
		return req, errors.New("title and author are required")
	}
	if v := col(4); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid totalCopies %q", v)
		}
		req.TotalCopies = n
	}
	return req, nil
}
