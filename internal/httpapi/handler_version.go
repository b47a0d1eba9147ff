package httpapi

import (
	"net/http"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"monitcollectord","version":"` + Version + `"}`))
	}
}
