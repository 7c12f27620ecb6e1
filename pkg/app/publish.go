package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"snesio/pkg/console"
	"snesio/pkg/mqtt"
	"snesio/pkg/pipeline"
	"snesio/pkg/snes"

	"github.com/womat/debug"
)

// pollInterval is the interval to check the ports for state changes.
const pollInterval = 50 * time.Millisecond

// portMessage is the mqtt payload of a port.
type portMessage struct {
	Port    int
	Time    time.Time
	State   uint16
	Hex     string
	Pressed []string
}

// published is the last message sent for a port.
type published struct {
	state uint16
	at    time.Time
}

// publish waits in an endless loop for state changes of the ports.
// It sends the state of a port to the mqtt broker if it has changed
// or the mqtt interval is exceeded.
func (app *App) publish(ctx context.Context) {
	if app.config.MQTT.Connection == "" {
		debug.InfoLog.Print("no mqtt broker configured, states aren't published")
		return
	}

	last := map[int]published{}
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, i := range app.ports.Ports() {
				p, ok := last[i.ID]
				if ok && p.state != i.State {
					debug.DebugLog.Printf("port %d: buttons changed %v", i.ID, buttonNames(snes.Changed(p.state, i.State)))
				}
				if !shouldPublish(p, ok, i.State, now, app.config.MQTT.Interval) {
					continue
				}

				app.sendMQTT(fmt.Sprintf("%s/%d", app.config.MQTT.Topic, i.ID), newPortMessage(i, now))
				last[i.ID] = published{state: i.State, at: now}
			}
		}
	}
}

// shouldPublish checks if the state differs from the last published one
// or the last message is older than interval.
func shouldPublish(p published, sent bool, state uint16, now time.Time, interval time.Duration) bool {
	if !sent || p.state != state {
		return true
	}
	return interval > 0 && now.Sub(p.at) >= interval
}

func buttonNames(b []snes.Button) []string {
	n := make([]string, len(b))
	for i := range b {
		n[i] = b[i].Name
	}
	return n
}

func newPortMessage(i pipeline.Info, now time.Time) portMessage {
	return portMessage{
		Port:    i.ID,
		Time:    now,
		State:   i.State,
		Hex:     fmt.Sprintf("%#04x", i.State),
		Pressed: snes.Pressed(i.State),
	}
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}

// dumpConsole writes the state of every port to w each console interval.
func (app *App) dumpConsole(ctx context.Context, w io.Writer) {
	t := time.NewTicker(app.config.Console.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, i := range app.ports.Ports() {
				if err := console.Dump(w, i.ID, i.State); err != nil {
					debug.ErrorLog.Printf("console: %v", err)
				}
			}
		}
	}
}
