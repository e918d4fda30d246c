package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env once at startup. Missing file is not an error; deployed
// environments set real env vars instead.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		GetLogger().Info("no .env file found; using process environment")
	}
}

func envOrDefault(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// NinoxAccount holds credentials for one hosted table database.
type NinoxAccount struct {
	BaseURL string
	Token   string
}

func (a NinoxAccount) Configured() bool {
	return a.BaseURL != "" && a.Token != ""
}

// PrimaryNinoxAccount reads the main table-API account.
// NINOX_API_BASE_URL should include the team/database prefix, so the client
// only appends /tables/{name}/records.
func PrimaryNinoxAccount() NinoxAccount {
	return NinoxAccount{
		BaseURL: envOrDefault("NINOX_API_BASE_URL", "https://api.ninox.com/v1"),
		Token:   strings.TrimSpace(os.Getenv("NINOX_API_TOKEN")),
	}
}

// SecondaryNinoxAccount is optional. Some deployments keep the catalog split
// across two accounts; the fetch layer falls back to this one when the primary
// has no matching table.
func SecondaryNinoxAccount() NinoxAccount {
	return NinoxAccount{
		BaseURL: strings.TrimSpace(os.Getenv("NINOX_API_BASE_URL_2")),
		Token:   strings.TrimSpace(os.Getenv("NINOX_API_TOKEN_2")),
	}
}

func NinoxPageSize() int {
	return envInt("NINOX_PAGE_SIZE", 100)
}

// FiscalSettings configures the proxy that forwards documents to the
// fiscal-printer web service.
type FiscalSettings struct {
	BaseURL      string
	BranchCode   string
	IssuePoint   string
	DeviceSerial string
	EmitterName  string
}

func GetFiscalSettings() FiscalSettings {
	return FiscalSettings{
		BaseURL:      envOrDefault("FISCAL_API_BASE_URL", "http://localhost:9090"),
		BranchCode:   envOrDefault("FISCAL_BRANCH_CODE", "0000"),
		IssuePoint:   envOrDefault("FISCAL_ISSUE_POINT", "001"),
		DeviceSerial: strings.TrimSpace(os.Getenv("FISCAL_DEVICE_SERIAL")),
		EmitterName:  strings.TrimSpace(os.Getenv("FISCAL_EMITTER_NAME")),
	}
}

// CatalogSpreadsheetPath switches the catalog source from the table API to a
// local workbook when set.
func CatalogSpreadsheetPath() string {
	return strings.TrimSpace(os.Getenv("CATALOG_XLSX_PATH"))
}
