package service

import (
	"net/url"
	"strings"

	"storefront-service/pkg/config"
)

// Links builds the absolute URLs handed out to clients
type Links struct {
	PublicURL   string
	ImagePrefix string
}

// NewLinks derives the links from the server and upload configuration
func NewLinks(cfg *config.Config) Links {
	return Links{
		PublicURL:   strings.TrimRight(cfg.Server.PublicURL, "/"),
		ImagePrefix: "/static/" + strings.Trim(cfg.Upload.ImageDir, "/"),
	}
}

// Verification returns the email verification link for a token
func (l Links) Verification(token string) string {
	return l.PublicURL + "/verification?token=" + url.QueryEscape(token)
}

// Image returns the public URL of a stored image
func (l Links) Image(name string) string {
	return l.PublicURL + l.ImagePrefix + "/" + name
}
