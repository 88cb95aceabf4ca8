// boardbot is a headless participant: it connects to a relay, draws a
// scripted stroke every few seconds, and exports the final canvas to
// a PNG on shutdown. Useful for demos and for soaking the relay.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"sketchboard/client"
	"sketchboard/drawing"
	"sketchboard/export"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	urlVar := flag.String("url", "ws://localhost:3001/ws", "the relay websocket url")
	nameVar := flag.String("name", "", "the participant name")
	outVar := flag.String("out", "", "path of the PNG written on exit (default temp dir)")
	flag.Parse()

	userID := uuid.NewString()
	name := *nameVar
	if name == "" {
		name = "bot-" + userID[:6]
	}

	doc := drawing.NewDocument()
	sc := client.New(*urlVar, userID, name, doc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sc.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		scribbleContinuously(ctx, sc, userID)
	}()

	exit := make(chan os.Signal, 1) // buffered so the notifier never blocks
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("signal caught", "sig", sig)
	cancel()
	wg.Wait()

	out := *outVar
	if out == "" {
		out = filepath.Join(os.TempDir(), userID+".png")
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.PNG(f, doc.Elements(), 1280, 800, false); err != nil {
		return err
	}
	slog.Info("exported", "path", out, "elements", doc.Len())
	return nil
}

// scribbleContinuously draws a short sine stroke somewhere on the
// canvas every few seconds and wiggles the cursor along it.
func scribbleContinuously(ctx context.Context, s *client.Sync, userID string) {
	colors := []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6"}
	for {
		t := time.NewTimer(time.Second + time.Second*time.Duration(rand.Intn(5)))
		select {
		case <-t.C:
			if s.State() != client.Connected {
				continue
			}
			origin := drawing.Point{X: rand.Float64() * 1000, Y: rand.Float64() * 600}
			var points []drawing.Point
			for i := 0; i <= 40; i++ {
				x := float64(i) * 4
				points = append(points, drawing.Point{
					X: origin.X + x,
					Y: origin.Y + 20*math.Sin(x/25),
				})
				s.MoveCursor(points[len(points)-1])
			}
			millis := time.Now().UnixMilli()
			el := drawing.Element{
				ID:        drawing.NewElementID(userID, millis),
				Type:      drawing.TypePen,
				Points:    points,
				Style:     drawing.Style{Stroke: colors[rand.Intn(len(colors))], StrokeWidth: 2},
				UserID:    userID,
				Timestamp: millis,
			}
			s.AddElement(el)
			slog.Info("scribbled", "id", el.ID, "elements", s.Document().Len())
		case <-ctx.Done():
			slog.Info("stopping scribbler")
			return
		}
	}
}
