package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default client configuration values
const (
	DefaultServer   = "localhost:8080"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds the terminal client configuration
type Config struct {
	// Server is the relay host, with optional port
	Server string

	// Insecure selects ws:// and http:// instead of wss:// and https://
	Insecure bool

	// WebSocketURL and APIURL are constructed from Server
	WebSocketURL string
	APIURL       string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server     string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstNonEmpty(opts.Server, os.Getenv("NOCTURNE_SERVER"), DefaultServer)

	insecure := opts.Insecure
	if !insecure {
		if v := os.Getenv("NOCTURNE_INSECURE"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("NOCTURNE_INSECURE: %w", err)
			}
			insecure = b
		}
	}

	wsScheme, httpScheme := "wss", "https"
	if insecure {
		wsScheme, httpScheme = "ws", "http"
	}

	return &Config{
		Server:       server,
		Insecure:     insecure,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", wsScheme, server),
		APIURL:       fmt.Sprintf("%s://%s", httpScheme, server),
		STUNServer:   firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer:   firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN),
		TURNUser:     firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser),
		TURNPass:     firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass),
	}, nil
}

// Endpoint returns the absolute URL of an HTTP API path
func (c *Config) Endpoint(path string) string {
	return c.APIURL + path
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
