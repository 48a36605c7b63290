package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/openfroyo/projconf/pkg/host"
)

// ErrCodeHostVersion marks a host older than the supported minimum.
const ErrCodeHostVersion = "UNSUPPORTED_HOST_VERSION"

// ErrHostVersion matches host version failures with errors.Is.
var ErrHostVersion = &host.Error{Class: host.ErrorClassPermanent, Code: ErrCodeHostVersion}

// NormalizeVersion turns a host version such as "6.4", "v6.4.1",
// "6.4.1-rc-1" or `6.4.1"` into a canonical semantic version. A prerelease
// suffix is kept so release candidates order below the final release;
// anything else after the numeric part is dropped.
func NormalizeVersion(version string) (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")

	end := 0
	for end < len(v) && (v[end] == '.' || isDigit(v[end])) {
		end++
	}
	numeric := strings.TrimRight(v[:end], ".")
	if numeric == "" {
		return "", fmt.Errorf("invalid version %q", version)
	}
	parts := strings.Split(numeric, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	candidate := "v" + strings.Join(parts, ".")
	if pre := prerelease(v[end:]); pre != "" {
		candidate += "-" + pre
	}

	canonical := semver.Canonical(candidate)
	if canonical == "" {
		return "", fmt.Errorf("invalid version %q", version)
	}
	return canonical, nil
}

// prerelease returns the identifiers of a leading "-pre" suffix.
func prerelease(rest string) string {
	if !strings.HasPrefix(rest, "-") {
		return ""
	}
	end := 1
	for end < len(rest) {
		c := rest[end]
		if !isDigit(c) && c != '-' && c != '.' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		end++
	}
	return strings.Trim(rest[1:end], ".")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// CheckHostVersion fails when hostVersion is older than minVersion.
func CheckHostVersion(hostVersion, minVersion string) error {
	minimum, err := NormalizeVersion(minVersion)
	if err != nil {
		return host.NewPermanentError("invalid minimum host version", err).WithCode(host.ErrCodeValidation)
	}

	required := fmt.Sprintf("host version >= %s is required", minVersion)
	current, err := NormalizeVersion(hostVersion)
	if err != nil {
		return host.NewPermanentError(required, err).WithCode(ErrCodeHostVersion)
	}
	if semver.Compare(current, minimum) < 0 {
		return host.NewPermanentError(required, fmt.Errorf("found %s", hostVersion)).WithCode(ErrCodeHostVersion)
	}
	return nil
}
