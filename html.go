/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

func newPage(title string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>body{font-family:sans-serif;max-width:32rem;margin:2rem auto;text-align:center}`)
	htmlBody.WriteString(`#word{font-size:2rem;font-weight:bold;margin:1rem 0}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head><body>", title))
	htmlBody.WriteString(`<h1 id="title"></h1><p id="players"></p><p id="role"></p><p id="word"></p>`)
	htmlBody.WriteString(`<img src="/qr" alt="join code" width="240" height="240"><p id="addr"></p>`)
	htmlBody.WriteString(`<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (e) => {
  const n = JSON.parse(e.data);
  if (n.type === "status") {
    const s = n.status;
    document.getElementById("title").textContent = s.game + ": " + s.category + (s.started ? " (playing)" : "");
    document.getElementById("players").textContent = s.clients + " / " + s.max_clients + " players" + (s.published ? ", discoverable" : "");
    document.getElementById("addr").textContent = s.address + ":" + s.port;
  } else if (n.type === "assignment") {
    const a = n.assignment;
    document.getElementById("role").textContent = a.role ? "You are " + a.role : "";
    document.getElementById("word").textContent = a.word || (a.words || []).join(", ");
  }
};
</script></body></html>`)

	return htmlBody.String()
}

func serveHomePage(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(w)

		_, _ = w.Write([]byte(newPage("lanparty " + h.serviceName)))
	}
}

func serveHealthCheck(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)

		_, _ = w.Write([]byte("Ok\n"))
	}
}

func serveVersion(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("lanparty v" + releaseVersion + "\n"))
		if err != nil {
			return
		}

		h.log.Debug().
			Str("size", humanReadableSize(int64(written))).
			Str("remote", realIP(r)).
			Dur("took", time.Since(startTime).Round(time.Microsecond)).
			Msg("served version")
	}
}

func serveStatus(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(w)

		_ = json.NewEncoder(w).Encode(h.Status())
	}
}

// serveQR renders the direct join address, for players whose device cannot
// see the advertisement.
func serveQR(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		png, err := qrcode.Encode(h.JoinAddress(), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(w)

		_, _ = w.Write(png)
	}
}

func serveRobots(h *Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := "User-agent: *\nDisallow: /\n"

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(w)

		_, _ = w.Write([]byte(data))
	}
}
