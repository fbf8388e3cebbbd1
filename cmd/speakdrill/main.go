// Command speakdrill is an interactive IELTS speaking practice client.
// Type a turn or record one from the microphone; the tutor's corrective
// reply comes back as text and, when autoplay is on, as synthesized audio.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/speakdrill/internal/audiodev"
	"github.com/snarg/speakdrill/internal/config"
	"github.com/snarg/speakdrill/internal/playback"
	"github.com/snarg/speakdrill/internal/prefs"
	"github.com/snarg/speakdrill/internal/recorder"
	"github.com/snarg/speakdrill/internal/session"
	"github.com/snarg/speakdrill/internal/tutorapi"
)

var version = "dev"

const welcome = "Welcome to your IELTS speaking practice session! You can type your " +
	"responses or use /record to speak. The AI tutor will provide feedback on " +
	"your grammar, vocabulary, and fluency."

func main() {
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file")
	flag.StringVar(&overrides.BackendURL, "backend", "", "tutor backend base URL")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("backend", cfg.BackendURL).Msg("speakdrill starting")

	if err := audiodev.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio")
	}
	defer audiodev.Terminate(log)

	prefsPath := cfg.PrefsPath
	if prefsPath == "" {
		if prefsPath, err = prefs.DefaultPath(); err != nil {
			log.Fatal().Err(err).Msg("could not resolve preferences path")
		}
	}
	store := prefs.Open(prefsPath, log.With().Str("component", "prefs").Logger())

	client := tutorapi.New(cfg.BackendURL, cfg.HTTPTimeout)
	sess := session.New(client, log.With().Str("component", "session").Logger())
	rec := recorder.New(recorder.OpenDefaultInput, cfg.SampleRate, cfg.FrameSize,
		log.With().Str("component", "recorder").Logger())

	app := &app{
		cfg:    cfg,
		log:    log,
		client: client,
		sess:   sess,
		rec:    rec,
		prefs:  store,
		out:    os.Stdout,
	}
	app.run(bufio.NewScanner(os.Stdin))
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	client *tutorapi.Client
	sess   *session.Session
	rec    *recorder.Recorder
	prefs  *prefs.Store
	out    *os.File

	lastAudio string // most recent tutor reply asset
}

func (a *app) run(in *bufio.Scanner) {
	a.sess.AddSystemMessage(welcome)
	fmt.Fprintln(a.out, welcome)
	fmt.Fprintln(a.out, `Commands: /record /play /autoplay /export json|text /reset /quit`)

	for {
		fmt.Fprint(a.out, "> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/record":
			a.recordTurn(in)
		case line == "/play":
			a.playLast()
		case line == "/autoplay":
			on := a.prefs.ToggleAutoplay()
			fmt.Fprintf(a.out, "autoplay %s\n", onOff(on))
		case strings.HasPrefix(line, "/export"):
			a.export(strings.TrimSpace(strings.TrimPrefix(line, "/export")))
		case line == "/reset":
			a.sess.Reset()
			a.rec.Reset()
			a.lastAudio = ""
			a.sess.AddSystemMessage(welcome)
			fmt.Fprintln(a.out, "session reset")
		default:
			a.sendText(line)
		}
	}
}

func (a *app) sendText(text string) {
	reply, err := a.sess.Send(context.Background(), text, nil)
	if err != nil {
		a.printLastSystem()
		return
	}
	a.printReply(reply)
}

func (a *app) recordTurn(in *bufio.Scanner) {
	if err := a.rec.Start(); err != nil {
		fmt.Fprintf(a.out, "microphone error: %s\n", a.rec.Err())
		a.rec.Reset()
		return
	}
	fmt.Fprintln(a.out, "recording... press Enter to stop")
	in.Scan()
	a.rec.Stop()

	if a.rec.State() == recorder.StateError {
		fmt.Fprintf(a.out, "recording failed: %s\n", a.rec.Err())
		a.rec.Reset()
		return
	}
	clip := a.rec.Clip()
	if clip == nil || len(clip.PCM) == 0 {
		fmt.Fprintln(a.out, "nothing captured")
		a.rec.Reset()
		return
	}
	fmt.Fprintf(a.out, "captured %ds of audio, transcribing...\n", clip.Duration)

	reply, tr, err := a.sess.SendRecording(context.Background(), clip)
	a.rec.Reset()
	if tr != nil {
		fmt.Fprintf(a.out, "you said: %q\n", tr.Text)
		if tr.Level() == tutorapi.ConfidenceLow {
			fmt.Fprintf(a.out, "(low confidence %.2f — consider re-recording or editing)\n", tr.Confidence)
		}
	}
	if err != nil {
		a.printLastSystem()
		return
	}
	a.printReply(reply)
}

func (a *app) printReply(reply *tutorapi.ChatReply) {
	if reply == nil {
		return
	}
	fmt.Fprintf(a.out, "\ntutor: %s\n\n", reply.Response)
	if reply.AudioFile != "" {
		a.lastAudio = reply.AudioFile
		if a.prefs.Autoplay() {
			a.playLast()
		}
	}
}

// printLastSystem surfaces the system message a failed round-trip appended.
func (a *app) printLastSystem() {
	msgs := a.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleSystem {
			fmt.Fprintln(a.out, msgs[i].Text)
			return
		}
	}
}

func (a *app) playLast() {
	if a.lastAudio == "" {
		fmt.Fprintln(a.out, "no tutor audio yet")
		return
	}
	p := playback.NewPlayer(playback.OpenDefaultOutput, a.cfg.FrameSize,
		a.log.With().Str("component", "playback").Logger())
	if err := p.Load(context.Background(), a.client.FetchAudio, a.lastAudio, true); err != nil {
		fmt.Fprintf(a.out, "audio unavailable: %v\n", err)
		return
	}
	for p.State() == playback.StatePlaying {
		time.Sleep(50 * time.Millisecond)
	}
	p.Close()
}

func (a *app) export(format string) {
	id := a.sess.SessionID()
	if id == "" {
		id = "draft"
	}

	var name string
	var data []byte
	switch format {
	case "", "json":
		var err error
		if data, err = a.sess.ExportJSON(); err != nil {
			fmt.Fprintf(a.out, "export failed: %v\n", err)
			return
		}
		name = fmt.Sprintf("ielts-session-%s.json", id)
	case "text":
		data = []byte(a.sess.ExportText())
		name = fmt.Sprintf("ielts-session-%s.txt", id)
	default:
		fmt.Fprintln(a.out, "usage: /export json|text")
		return
	}

	if err := os.WriteFile(name, data, 0o644); err != nil {
		fmt.Fprintf(a.out, "export failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "wrote %s\n", name)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
