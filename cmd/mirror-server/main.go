package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"
)

// mirror-server serves a saved copy of a publication site, so a build can be
// run against it with NOVELHUB_BASE_URL and NOVELHUB_CHAPTER_BASE pointing here.
func main() {
	dir := flag.String("dir", "data/mirror", "directory holding the saved site")
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Fatalf("mirror directory %q is not readable: %v", *dir, err)
	}

	http.Handle("/", logRequests(http.FileServer(http.Dir(*dir))))

	log.Printf("mirror-server serving %s on %s", *dir, *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[mirror] %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
