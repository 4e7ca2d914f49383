package fileutil

import (
	"log"
	"net/url"
	"path"

	"github.com/witml/witbuild/envutil"
)

// Region used for S3 listing operations.
var Region = envutil.GetenvDefault("AWS_REGION", "us-west-1")

// Join is a url.URL scheme-safe join method. This allows for joining of local
// paths as well as URIs.
func Join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]
	u, err := url.Parse(parts[0])
	if err != nil {
		log.Fatal(err)
	}

	parts[0] = u.Path
	u.Path = path.Join(parts...)
	parts[0] = first // reset in case we were called with a persisted slice
	return u.String()
}
