package generator

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("lattice").Funcs(template.FuncMap{
	"py":    strconv.Quote,
	"join":  strings.Join,
	"price": formatPrice,
}).ParseFS(templateFS, "templates/*.tmpl"))

// render executes the named template (file name without the .tmpl suffix).
func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
