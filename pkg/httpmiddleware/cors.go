package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin request handling.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to call the API. Empty, or a
	// single "*", permits every origin.
	AllowOrigins []string

	// AllowMethods lists permitted methods. Empty falls back to
	// "GET, POST, PUT, DELETE, OPTIONS".
	AllowMethods []string

	// AllowHeaders lists permitted request headers. Empty echoes whatever
	// the preflight asked for.
	AllowHeaders []string

	// ExposeHeaders lists response headers scripts may read.
	ExposeHeaders []string

	// AllowCredentials permits cookies and Authorization headers. It cannot
	// be combined with a wildcard origin; the specific origin is echoed
	// instead.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header, negative sends "0".
	MaxAge int
}

// cors holds the header values precomputed from a CORSConfig.
type cors struct {
	wildcard    bool
	origins     map[string]string // lowercase -> configured form
	methods     string
	headers     string
	expose      string
	maxAge      string
	credentials bool
}

// CORS returns a middleware handling preflight and simple cross-origin
// requests. Origin matching is case-insensitive; the configured form of the
// origin is echoed back. Vary headers are set so shared caches keep
// per-origin responses apart.
func CORS(cfg CORSConfig) Middleware {
	c := &cors{
		wildcard:    len(cfg.AllowOrigins) == 0,
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.wildcard = true
			break
		}
		c.origins[strings.ToLower(o)] = o
	}
	if c.credentials {
		// Wildcard plus credentials is rejected by browsers.
		c.wildcard = false
	}
	if c.methods == "" {
		c.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	if cfg.MaxAge > 0 {
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	} else if cfg.MaxAge < 0 {
		c.maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin traffic. Still vary on Origin so caches do not
				// serve this response to a cross-origin caller later.
				if !c.wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				c.preflight(w, r, origin)
				return
			}

			c.actual(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}

func (c *cors) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	allow := c.resolve(origin)
	if allow == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", c.methods)

	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	} else if asked := r.Header.Get("Access-Control-Request-Headers"); asked != "" {
		h.Set("Access-Control-Allow-Headers", asked)
	}
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *cors) actual(w http.ResponseWriter, origin string) {
	h := w.Header()
	if !c.wildcard {
		h.Add("Vary", "Origin")
	}

	allow := c.resolve(origin)
	if allow == "" {
		return
	}

	h.Set("Access-Control-Allow-Origin", allow)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.expose != "" {
		h.Set("Access-Control-Expose-Headers", c.expose)
	}
}

// resolve maps a request origin to the Access-Control-Allow-Origin value,
// or "" when the origin is not permitted.
func (c *cors) resolve(origin string) string {
	if c.wildcard {
		return "*"
	}
	return c.origins[strings.ToLower(origin)]
}
