package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const PLACEHOLDER_ICON_SIZE = 32

// Icon is one entry of the static catalog. Image is preprocessed at load time
// and never changed afterwards.
type Icon struct {
	Name    string      `yaml:"name"`
	Caption string      `yaml:"caption"`
	File    string      `yaml:"file,omitempty"` // defaults to <name>.png, then <name>.svg
	Image   *image.RGBA `yaml:"-"`
}

type iconCatalogFile struct {
	Icons []Icon `yaml:"icons"`
}

func builtinIcons() []Icon {
	return []Icon{
		{Name: "pikachu", Caption: "Pika pika!"},
		{Name: "metroid", Caption: "Metroids!"},
		{Name: "toad", Caption: "Our princess is in another castle!"},
		{Name: "core-x", Caption: "X Parasites!"},
		{Name: "oddish", Caption: "Oddish oddish!"},
		{Name: "ultros", Caption: "Yeowch! Seafood soup!"},
	}
}

// parseIconCatalog reads the yaml catalog format:
//
//	icons:
//	  - name: pikachu
//	    caption: Pika pika!
func parseIconCatalog(data []byte) ([]Icon, error) {
	var catalog iconCatalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("icon catalog: %w", err)
	}
	for i, icon := range catalog.Icons {
		if icon.Name == "" {
			return nil, fmt.Errorf("icon catalog: entry %d has no name", i)
		}
	}
	return catalog.Icons, nil
}

// loadIconCatalog builds the catalog and loads every image once. Icons whose
// asset is missing get a generated placeholder instead of failing startup.
func loadIconCatalog(cfg IconsConfig) ([]Icon, error) {
	icons := builtinIcons()
	if cfg.Catalog != "" {
		data, err := os.ReadFile(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		if icons, err = parseIconCatalog(data); err != nil {
			return nil, err
		}
	}

	for i := range icons {
		img, err := loadIconImage(cfg.Dir, icons[i])
		if err != nil {
			log.Printf("icon %s: %v, using placeholder", icons[i].Name, err)
			img, err = rasterizeSVG(bytes.NewReader(placeholderIconSVG(icons[i].Name, PLACEHOLDER_ICON_SIZE)), 0, 0)
			if err != nil {
				return nil, fmt.Errorf("icon %s placeholder: %w", icons[i].Name, err)
			}
		}
		icons[i].Image = adjustBrightness(img, cfg.Brightness)
	}
	return icons, nil
}

func loadIconImage(dir string, icon Icon) (*image.RGBA, error) {
	if icon.File != "" {
		return loadImage(filepath.Join(dir, icon.File))
	}

	var lastErr error
	for _, ext := range []string{".png", ".svg"} {
		img, err := loadImage(filepath.Join(dir, icon.Name+ext))
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !errors.Is(err, os.ErrNotExist) {
			break
		}
	}
	return nil, lastErr
}

//---------------- Scheduler ----------------

// IconScheduler decides, at each message rotation, whether to interrupt with
// an icon. The generator is injected so tests can fix the sequence.
type IconScheduler struct {
	icons       []Icon
	probability float64
	rng         *rand.Rand
	logger      *log.Logger
}

func NewIconScheduler(icons []Icon, probability float64, rng *rand.Rand, logger *log.Logger) *IconScheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &IconScheduler{
		icons:       icons,
		probability: probability,
		rng:         rng,
		logger:      logger,
	}
}

// Pick returns a uniformly random icon and logs its caption.
func (s *IconScheduler) Pick() (Icon, bool) {
	if len(s.icons) == 0 {
		return Icon{}, false
	}
	icon := s.icons[s.rng.Intn(len(s.icons))]
	s.logger.Println(icon.Caption)
	return icon, true
}

// Roll samples [0,1) once and picks an icon when the sample falls under the probability.
func (s *IconScheduler) Roll() (Icon, bool) {
	if s.rng.Float64() >= s.probability {
		return Icon{}, false
	}
	return s.Pick()
}

func (s *IconScheduler) Icons() []Icon {
	return s.icons
}
