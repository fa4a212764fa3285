package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-story/backend/internal/config"
	"github.com/zhouzirui/z-story/backend/internal/logger"
	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	storymodel "github.com/zhouzirui/z-story/backend/internal/model/story"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	"github.com/zhouzirui/z-story/backend/internal/service/story"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	presets := preset.NewMemoryStore(preset.Seed())
	defaults := presets.Options()

	gender := flag.String("gender", defaults.DefaultGender, "protagonist gender")
	age := flag.String("age", defaults.DefaultAge, "protagonist age")
	genre := flag.String("genre", defaults.DefaultGenre, "genre")
	setting := flag.String("setting", defaults.DefaultSetting, "world setting or a previous summary")
	imageDir := flag.String("images", "", "directory to save illustrations into (optional)")
	verbose := flag.Bool("v", false, "log backend calls to stderr")
	flag.Parse()

	logCfg := cfg.Log
	if !*verbose {
		logCfg.Level = "error"
	}
	zlog, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()
	client, err := ai.NewClientFromConfig(ctx, cfg.AI, zlog.Named("ai"))
	if err != nil {
		log.Fatalf("AI backend unavailable: %v", err)
	}
	svc := story.NewService(client, zlog.Named("story"), story.Options{
		Genres:           presets,
		ImageStyleSuffix: cfg.AI.ImageStyleSuffix,
	})

	ui, err := newView(os.Stdout)
	if err != nil {
		log.Fatalf("failed to init renderer: %v", err)
	}

	p := &player{
		svc:      svc,
		ui:       ui,
		images:   newImageSaver(*imageDir),
		logger:   zlog,
		settings: storymodel.GameSettings{Gender: *gender, Age: *age, Genre: *genre, Setting: *setting},
	}
	if err := p.run(ctx, bufio.NewScanner(os.Stdin)); err != nil {
		log.Fatal(err)
	}
}

type player struct {
	svc      *story.Service
	ui       *view
	images   *imageSaver
	logger   *zap.Logger
	settings storymodel.GameSettings

	shown int
}

func (p *player) run(ctx context.Context, in *bufio.Scanner) error {
	snap := p.svc.Create(ctx)
	id := snap.ID

	p.ui.status("物語を紡いでいます…")
	snap, err := p.svc.Start(ctx, id, p.settings)
	if err != nil {
		p.ui.errorLine(snap.Error)
		return fmt.Errorf("start story: %w", err)
	}
	p.show(snap)

	for {
		p.ui.prompt()
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())

		switch line {
		case "":
			continue
		case "q":
			p.svc.Wait()
			return nil
		case "s":
			p.ui.status("あらすじを作成中…")
			text, err := p.svc.Summary(ctx, id)
			if err != nil && !errors.Is(err, ai.ErrGeneration) {
				p.ui.errorLine(err.Error())
				continue
			}
			p.ui.summary(text)
			continue
		}

		action := p.resolveAction(line, snap)
		p.ui.userAction(action)
		p.ui.status("物語を紡いでいます…")

		next, err := p.svc.Choose(ctx, id, action)
		if err != nil {
			if next.Error != "" {
				p.ui.errorLine(next.Error)
			} else {
				p.ui.errorLine(err.Error())
			}
			if next.ID != "" {
				snap = next
				p.shown = len(snap.Segments)
			}
			p.ui.choices(snap.Choices())
			continue
		}
		snap = next
		p.show(snap)
	}
}

// resolveAction maps a 1-based choice number to its text; anything else is a
// free-form action.
func (p *player) resolveAction(line string, snap story.Snapshot) string {
	choices := snap.Choices()
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1]
	}
	return line
}

func (p *player) show(snap story.Snapshot) {
	for _, seg := range snap.Segments[p.shown:] {
		if seg.IsUserAction {
			continue
		}
		p.ui.narration(seg.Text, seg.Mood)
	}
	p.shown = len(snap.Segments)

	if p.images.enabled() {
		p.svc.Wait()
		final, err := p.svc.Snapshot(context.Background(), snap.ID)
		if err == nil {
			for _, seg := range final.Segments {
				path, err := p.images.save(seg)
				if err != nil {
					p.logger.Warn("illustration not saved", zap.String("segment_id", seg.ID), zap.Error(err))
					continue
				}
				if path != "" {
					p.ui.status("挿絵: " + path)
				}
			}
		}
	}
	p.ui.choices(snap.Choices())
}
