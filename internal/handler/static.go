package handler

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var webFS embed.FS

// StaticHandler は埋め込みUIを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		// go:embedの構成が壊れている場合のみ到達する
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
