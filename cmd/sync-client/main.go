package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"novelhub/internal/pipeline"
	synchub "novelhub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	pub := flag.String("publication", "", "only follow this publication id")
	raw := flag.Bool("raw", false, "print the JSON lines as received")
	flag.Parse()

	for {
		if err := follow(*addr, *pub, *raw); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func follow(addr, pub string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	log.Printf("[sync-client] connected to %s", addr)

	if pub != "" {
		msg := synchub.SubscribeMessage{Type: synchub.MessageSubscribe, Publication: pub}
		if err := json.NewEncoder(conn).Encode(msg); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		if raw {
			fmt.Println(sc.Text())
			continue
		}
		if line := describe(sc.Bytes()); line != "" {
			fmt.Println(line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// describe turns one stream line into a log line. Control messages are
// shown briefly; unknown lines are printed as received.
func describe(line []byte) string {
	var ev pipeline.Event
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		return string(line)
	}

	stamp := ev.Time.Local().Format("15:04:05")
	switch ev.Type {
	case synchub.MessageWelcome:
		return "connected"
	case synchub.MessageSubscribed:
		return "following " + ev.Publication
	case pipeline.EventStarted:
		return fmt.Sprintf("%s %s: build %s started", stamp, ev.Publication, ev.Detail)
	case pipeline.EventChapterFetched:
		return fmt.Sprintf("%s %s: chapter %d downloaded", stamp, ev.Publication, ev.Chapter)
	case pipeline.EventChapterFailed:
		return fmt.Sprintf("%s %s: chapter %d failed: %s", stamp, ev.Publication, ev.Chapter, ev.Detail)
	case pipeline.EventChapterExtracted:
		return fmt.Sprintf("%s %s: chapter %d extracted", stamp, ev.Publication, ev.Chapter)
	case pipeline.EventBuildCompleted:
		return fmt.Sprintf("%s %s: done, %s -> %s", stamp, ev.Publication, ev.Detail, ev.Path)
	case pipeline.EventBuildFailed:
		return fmt.Sprintf("%s %s: build failed: %s", stamp, ev.Publication, ev.Detail)
	default:
		return string(line)
	}
}
