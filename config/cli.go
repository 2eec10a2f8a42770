package config

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/splitcast/splitcast-api/video"
)

type Cli struct {
	HTTPAddress   string
	UploadDir     string
	HLSDir        string
	StatusFile    string
	Workers       map[string]string
	Renditions    []video.Rendition
	FFmpegTimeout time.Duration
}

// Validate checks that every configured rendition has a worker to run on and
// that all worker URLs are absolute.
func (cli *Cli) Validate() error {
	if len(cli.Renditions) == 0 {
		return fmt.Errorf("no renditions configured")
	}
	for _, r := range cli.Renditions {
		base, ok := cli.Workers[r.Name]
		if !ok {
			return fmt.Errorf("no converter worker configured for rendition %q", r.Name)
		}
		u, err := url.Parse(base)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("converter worker URL for %q is not absolute: %q", r.Name, base)
		}
	}
	return nil
}

// ParseLegacyEnv keeps compatibility with the bare PORT environment variable
// older deployments set instead of the full listen address.
func (cli *Cli) ParseLegacyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if host, _, err := net.SplitHostPort(cli.HTTPAddress); err == nil {
			cli.HTTPAddress = net.JoinHostPort(host, port)
		}
	}
}

// CommaMapFlag parses a comma-separated list of key=value pairs, used for the
// rendition label to worker base URL mapping.
func CommaMapFlag(fs *flag.FlagSet, dest *map[string]string, name string, defaultValue map[string]string, usage string) {
	*dest = defaultValue
	fs.Func(name, usage, func(s string) error {
		m := map[string]string{}
		if s == "" {
			*dest = m
			return nil
		}
		for _, pair := range strings.Split(s, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("failed to parse key-value pair %q", pair)
			}
			m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
		*dest = m
		return nil
	})
}

// RenditionsFlag parses the transcoding ladder, e.g.
// "360p:360:800k:96k,480p:480:1400k:128k".
func RenditionsFlag(fs *flag.FlagSet, dest *[]video.Rendition, name string, defaultValue []video.Rendition, usage string) {
	*dest = defaultValue
	fs.Func(name, usage, func(s string) error {
		renditions, err := video.ParseRenditions(s)
		if err != nil {
			return err
		}
		*dest = renditions
		return nil
	})
}
