package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ahorro/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Resumenes", 2025, "2025 Resumenes"},
		{" Resumenes ", 2024, "2024 Resumenes"},
		{"2023 Resumenes", 2025, "2023 Resumenes"},
		{"", 2025, ""},
		{"12345", 2025, "2025 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestSummaryRow(t *testing.T) {
	updated := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	s := core.MonthlySummary{
		TotalSpent:    decimal.RequireFromString("42.5"),
		SavingPercent: 95.75,
		ByCategory:    core.CategoryTotals{Agua: decimal.NewFromInt(30), Luz: decimal.RequireFromString("12.5")},
		GoalMet:       true,
	}
	row := summaryRow("u1", s, updated)
	want := []any{"2025-03-15T12:00:00Z", "u1", "2025-03", "42.50", "30.00", "12.50", "0.00", "95.75", true}
	if len(row) != len(want) {
		t.Fatalf("row has %d columns", len(row))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestExportSummary_AppendsUserEnteredRow(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"'2025 Resumenes'!A7:I7"}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "sheet-1", "",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}

	s := core.MonthlySummary{
		TotalSpent: decimal.NewFromInt(10),
		UpdatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	ref, err := c.ExportSummary(context.Background(), "u1", s)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref != "'2025 Resumenes'!A7:I7" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.Contains(gotPath, "sheet-1") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 9 || gotBody.Values[0][1] != "u1" {
		t.Errorf("body = %+v", gotBody.Values)
	}
}

func TestExportSummary_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.ExportSummary(context.Background(), "u1", core.MonthlySummary{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}
