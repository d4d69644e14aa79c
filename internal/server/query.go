package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gurman-sys/rentbuddy/internal/services"
)

// ListOptions reads the limit and offset query parameters. Absent values are
// left zero for services.NormalizeListOptions to fill in.
func ListOptions(r *http.Request) (services.ListOptions, error) {
	var opts services.ListOptions
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return services.ListOptions{}, fmt.Errorf("%s must be an integer", p.name)
		}
		*p.dst = n
	}
	return opts, nil
}
