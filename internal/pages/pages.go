// Package pages serves the site's static pages and assets.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/tuncerburak97/vitrin/internal/config"
)

//go:embed assets
var assets embed.FS

type pageData struct {
	HelloPath    string
	StaticPrefix string
}

// Register mounts the home page, the hello page, the favicon and the static
// assets on app. Pages are rendered once at startup.
func Register(app *fiber.App, cfg config.PagesConfig) error {
	data := pageData{HelloPath: cfg.HelloPath, StaticPrefix: cfg.StaticPrefix}

	home, err := render("assets/home.html", data)
	if err != nil {
		return err
	}
	hello, err := render("assets/hello.html", data)
	if err != nil {
		return err
	}

	static, err := fs.Sub(assets, "assets/static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	app.Use(favicon.New(favicon.Config{
		File:       "assets/favicon.ico",
		URL:        "/favicon.ico",
		FileSystem: http.FS(assets),
	}))
	app.Use(cfg.StaticPrefix, filesystem.New(filesystem.Config{
		Root:   http.FS(static),
		MaxAge: 3600,
	}))

	app.Get("/", html(home))
	app.Get(cfg.HelloPath, html(hello))
	return nil
}

func render(name string, data pageData) ([]byte, error) {
	tmpl, err := template.ParseFS(assets, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func html(body []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(body)
	}
}
