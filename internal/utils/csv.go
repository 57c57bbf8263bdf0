package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlinesToCSV writes klines with a header row, creating parent directories.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(klineHeader); err != nil {
		return err
	}
	for _, k := range klines {
		if err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			k.CloseTime.UTC().Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			k.Open.String(),
			k.High.String(),
			k.Low.String(),
			k.Close.String(),
			k.Volume.String(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadKlinesFromCSV reads a file written by WriteKlinesToCSV. Columns are
// located by header name; a missing or empty symbol column takes symbol.
func ReadKlinesFromCSV(filename, symbol string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadKlines(file, symbol)
}

// ReadKlines parses kline CSV from r.
func ReadKlines(r io.Reader, symbol string) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"open_time", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		k, err := parseKline(record, cols, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKline(record []string, cols map[string]int, symbol string) (*domain.Kline, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	k := &domain.Kline{
		Symbol:   field("symbol"),
		Interval: field("interval"),
		IsFinal:  true,
	}
	if k.Symbol == "" {
		k.Symbol = symbol
	}

	var err error
	if k.OpenTime, err = parseTime(field("open_time")); err != nil {
		return nil, fmt.Errorf("open_time: %w", err)
	}
	if raw := field("close_time"); raw != "" {
		if k.CloseTime, err = parseTime(raw); err != nil {
			return nil, fmt.Errorf("close_time: %w", err)
		}
	}
	for _, f := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"open", &k.Open},
		{"high", &k.High},
		{"low", &k.Low},
		{"close", &k.Close},
		{"volume", &k.Volume},
	} {
		raw := field(f.name)
		if raw == "" && f.name == "volume" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return k, nil
}

// parseTime accepts RFC3339 or Unix milliseconds.
func parseTime(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// ReadQuotesFromCSV reads tick quotes with columns time, price, bid, ask and
// optional volume and symbol. Missing bid/ask default to the trade price.
func ReadQuotesFromCSV(filename, symbol string) ([]*domain.Quote, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadQuotes(file, symbol)
}

// ReadQuotes parses quote CSV from r.
func ReadQuotes(r io.Reader, symbol string) ([]*domain.Quote, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"time", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var quotes []*domain.Quote
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		q := &domain.Quote{Symbol: field("symbol")}
		if q.Symbol == "" {
			q.Symbol = symbol
		}
		if q.Time, err = parseTime(field("time")); err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		if q.Price, err = decimal.NewFromString(field("price")); err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		q.Bid, q.Ask = q.Price, q.Price
		for _, f := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"bid", &q.Bid},
			{"ask", &q.Ask},
			{"volume", &q.Volume},
		} {
			raw := field(f.name)
			if raw == "" {
				continue
			}
			if *f.dst, err = decimal.NewFromString(raw); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, f.name, err)
			}
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// WriteOrdersToCSV writes processed orders, one row per order.
func WriteOrdersToCSV(orders []domain.Order, filename string) error {
	file, err := create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "time", "symbol", "quantity", "type", "price", "status", "fee", "tag"}); err != nil {
		return err
	}
	for _, o := range orders {
		if err := writer.Write([]string{
			strconv.FormatInt(o.ID, 10),
			o.Time.UTC().Format(time.RFC3339Nano),
			o.Symbol,
			strconv.FormatInt(o.Quantity, 10),
			string(o.Type),
			o.Price.String(),
			string(o.Status),
			o.Fee.String(),
			o.Tag,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func create(filename string) (*os.File, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(filename)
}
