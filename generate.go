//go:generate go run ./internal/tools/versiongen -panel httpapi/assets/index.html

package webchat
