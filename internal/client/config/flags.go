package config

import "github.com/spf13/pflag"

// BindFlags registers the shopctl flags on fs, writing straight into cfg.
//
//	-a, --server string     API base URL
//	-t, --timeout duration  per-request timeout
//	    --cookie-jar string cookie jar file
//	-c, --config string     JSON config file (read before flags are parsed)
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ServerURL, "server", "a", cfg.ServerURL, "API base URL")
	fs.DurationVarP(&cfg.RequestTimeout, "timeout", "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.CookieJarPath, "cookie-jar", cfg.CookieJarPath, "cookie jar file")
	// consumed by parseJson; declared so the parser accepts it
	fs.StringP("config", "c", "", "JSON config file")
}
