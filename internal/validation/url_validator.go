package validation

import (
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("fetchable_url", validateFetchableURL)
	_ = validate.RegisterValidation("public_host", validatePublicHost)
}

// FilterURLs trims every entry, drops blank lines and splits the rest into
// fetchable http(s) URLs and rejected ones, preserving input order.
// With blockPrivate, loopback, private and metadata hosts are rejected too.
func FilterURLs(urls []string, blockPrivate bool) (valid, invalid []string) {
	tag := "fetchable_url"
	if blockPrivate {
		tag = "fetchable_url,public_host"
	}

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := validate.Var(u, tag); err != nil {
			invalid = append(invalid, u)
			continue
		}
		valid = append(valid, u)
	}
	return valid, invalid
}

func validateFetchableURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func validatePublicHost(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}

	host := u.Hostname()

	forbiddenHosts := []string{
		"localhost",
		"127.0.0.1",
		"::1",
		"0.0.0.0",
		"169.254.169.254",
	}

	for _, forbidden := range forbiddenHosts {
		if strings.EqualFold(host, forbidden) {
			return false
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			return false
		}
	}

	return true
}
