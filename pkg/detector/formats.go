package detector

import "github.com/ccollicutt/logreader/pkg/logformat"

// KnownFormat is a named LogFormat string the detector tries.
type KnownFormat struct {
	Name        string          // Short name usable as --format
	Format      string          // LogFormat string
	Description string          // Human-readable description
	Plan        *logformat.Plan // Compiled plan (set during init)
}

// DefaultFormats returns the built-in access log formats to detect.
// When two formats match equally well the one with more fields wins.
func DefaultFormats() []*KnownFormat {
	formats := []*KnownFormat{
		{
			Name:        "combined",
			Format:      logformat.Combined,
			Description: "Apache/NGINX combined log format",
		},
		{
			Name:        "common",
			Format:      logformat.Common,
			Description: "Apache/NGINX common log format (CLF)",
		},
		{
			Name:        "combined_xff",
			Format:      logformat.Combined + ` "%{X-Forwarded-For}i"`,
			Description: "Combined log format with trailing X-Forwarded-For header",
		},
		{
			Name:        "common_host",
			Format:      logformat.Common + ` "%{Host}i"`,
			Description: "Common log format with trailing Host header",
		},
	}

	for _, f := range formats {
		f.Plan = logformat.MustCompile(f.Format)
	}

	return formats
}

// Lookup returns the built-in format with the given name.
func Lookup(name string) (*KnownFormat, bool) {
	for _, f := range DefaultFormats() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
