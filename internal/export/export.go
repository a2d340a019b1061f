// Package export renders a filtered employee listing as a CSV or XLSX file,
// stores it in object storage and hands back a time-limited download URL.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/pkg/apperr"
	"github.com/gogotex/employees/pkg/logger"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	// MaxRows bounds a single export.
	MaxRows = 10000

	sheetName = "Sheet1"
)

var contentTypes = map[Format]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var header = []string{
	"id", "name", "surnames", "age", "city", "email",
	"position", "department", "createdAt", "updatedAt",
}

// ParseFormat maps a request value onto a Format; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "unsupported export format"), map[string]any{"format": s})
}

// Lister is the listing half of the employee service.
type Lister interface {
	FindAll(ctx context.Context, r query.Request) (*employee.Page, error)
}

// ObjectStore is implemented by storage.MinIOStorage.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Result describes a stored export.
type Result struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Format    Format    `json:"format"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Exporter struct {
	lister Lister
	store  ObjectStore
	ttl    time.Duration
	now    func() time.Time
}

func New(lister Lister, store ObjectStore, ttl time.Duration) *Exporter {
	return &Exporter{lister: lister, store: store, ttl: ttl, now: time.Now}
}

// Export writes every employee matching r (ignoring its page and limit) in
// format f and uploads the file.
func (e *Exporter) Export(ctx context.Context, r query.Request, f Format) (*Result, error) {
	rows, err := e.collect(ctx, r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		err = writeCSV(&buf, rows)
	case FormatXLSX:
		err = writeXLSX(&buf, rows)
	default:
		return nil, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "unsupported export format"), map[string]any{"format": string(f)})
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "render export")
	}

	now := e.now().UTC()
	key := fmt.Sprintf("exports/employees-%s-%s.%s", now.Format("20060102T150405Z"), primitive.NewObjectID().Hex(), f)
	if err := e.store.UploadFile(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentTypes[f]); err != nil {
		logger.Errorf("export: upload %s failed: %v", key, err)
		return nil, apperr.Wrap(err, apperr.ErrStorageUnavailable, "upload export")
	}
	url, err := e.store.GetPresignedURL(ctx, key, e.ttl)
	if err != nil {
		logger.Errorf("export: presign %s failed: %v", key, err)
		return nil, apperr.Wrap(err, apperr.ErrStorageUnavailable, "presign export")
	}
	logger.Infof("export: stored %d employee(s) as %s", len(rows), key)
	return &Result{Key: key, URL: url, Format: f, Rows: len(rows), ExpiresAt: now.Add(e.ttl)}, nil
}

// collect pages through the listing at the maximum page size.
func (e *Exporter) collect(ctx context.Context, r query.Request) ([]*employee.Employee, error) {
	limit := query.MaxLimit
	r.Limit = &limit
	var out []*employee.Employee
	for page := 1; ; page++ {
		p := page
		r.Page = &p
		res, err := e.lister.FindAll(ctx, r)
		if err != nil {
			return nil, err
		}
		if res.Pagination.Total > MaxRows {
			return nil, apperr.WithFields(
				apperr.Newf(apperr.ErrInvalidArgument, fmt.Sprintf("export is limited to %d rows; narrow the filter", MaxRows)),
				map[string]any{"total": res.Pagination.Total},
			)
		}
		out = append(out, res.Data...)
		if int64(page) >= res.Pagination.Pages || len(res.Data) == 0 {
			return out, nil
		}
	}
}

func record(e *employee.Employee) []string {
	return []string{
		e.ID, e.Name, e.Surnames, strconv.Itoa(e.Age), e.City, e.Email,
		e.Position, e.Department,
		e.CreatedAt.UTC().Format(time.RFC3339), e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeCSV(w io.Writer, rows []*employee.Employee) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range rows {
		if err := cw.Write(record(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rows []*employee.Employee) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return err
	}
	for i, e := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := toCells(record(e))
		values[3] = e.Age
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func toCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
