// Package czml serializes point clouds as CZML documents for
// time-dynamic playback in Cesium-based viewers.
package czml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

// Rendering modes. Path draws a single polyline sampled over time,
// points emits one packet per sample.
const (
	ModePath   = "path"
	ModePoints = "points"
)

const documentVersion = "1.0"

// Packet is a single CZML packet. Fields are pointers or omitempty so
// the document header, path and point packets all share one shape.
type Packet struct {
	ID           string    `json:"id"`
	Version      string    `json:"version,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Position     *Position `json:"position,omitempty"`
	Path         *Path     `json:"path,omitempty"`
	Point        *Point    `json:"point,omitempty"`
}

// Position carries cartographic samples. In path mode CartographicDegrees
// holds [offsetSeconds, lon, lat, alt] quads relative to Epoch, in points
// mode a single [lon, lat, alt] triple.
type Position struct {
	Epoch               string    `json:"epoch,omitempty"`
	CartographicDegrees []float64 `json:"cartographicDegrees"`
}

type Path struct {
	Material Material `json:"material"`
	Width    int      `json:"width"`
}

type Material struct {
	SolidColor SolidColor `json:"solidColor"`
}

type SolidColor struct {
	Color Color `json:"color"`
}

type Color struct {
	RGBA [4]int `json:"rgba"`
}

type Point struct {
	PixelSize int   `json:"pixelSize"`
	Color     Color `json:"color"`
}

var (
	pathColor  = Color{RGBA: [4]int{0, 255, 255, 255}}
	pointColor = Color{RGBA: [4]int{255, 0, 0, 255}}
)

// Writer renders point clouds as CZML documents.
type Writer struct {
	Mode string
}

func NewWriter(mode string) (*Writer, error) {
	switch mode {
	case ModePath, ModePoints:
		return &Writer{Mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown czml mode %q", mode)
	}
}

func (w *Writer) Format() string { return "czml" }

// Encode builds the packet list for a cloud. The first packet is always
// the document header; an empty cloud yields only the header.
func (w *Writer) Encode(cloud *domain.PointCloud) []Packet {
	packets := []Packet{{ID: "document", Version: documentVersion}}
	if cloud.Len() == 0 {
		return packets
	}
	if w.Mode == ModePoints {
		return append(packets, pointPackets(cloud)...)
	}
	return append(packets, pathPacket(cloud))
}

// Write encodes the cloud and writes it to path, creating parent
// directories as needed.
func (w *Writer) Write(cloud *domain.PointCloud, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create czml output dir: %w", err)
	}
	data, err := json.MarshalIndent(w.Encode(cloud), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal czml document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write czml document: %w", err)
	}
	return nil
}

func pathPacket(cloud *domain.PointCloud) Packet {
	epoch := cloud.Time.Values[0]
	quads := make([]float64, 0, cloud.Len()*4)
	for i := 0; i < cloud.Len(); i++ {
		offset := cloud.Time.Values[i].Sub(epoch) / time.Second
		quads = append(quads,
			float64(offset),
			cloud.Lon.Values[i],
			cloud.Lat.Values[i],
			cloud.Alt.Values[i],
		)
	}
	return Packet{
		ID: "pointcloud-path",
		Position: &Position{
			Epoch:               epoch.UTC().Format(time.RFC3339),
			CartographicDegrees: quads,
		},
		Path: &Path{
			Material: Material{SolidColor: SolidColor{Color: pathColor}},
			Width:    1,
		},
	}
}

func pointPackets(cloud *domain.PointCloud) []Packet {
	packets := make([]Packet, 0, cloud.Len())
	for i := 0; i < cloud.Len(); i++ {
		stamp := cloud.Time.Values[i].UTC().Format(time.RFC3339)
		packets = append(packets, Packet{
			ID:           fmt.Sprintf("point-%06d", i),
			Availability: stamp + "/" + stamp,
			Position: &Position{
				CartographicDegrees: []float64{
					cloud.Lon.Values[i],
					cloud.Lat.Values[i],
					cloud.Alt.Values[i],
				},
			},
			Point: &Point{PixelSize: 4, Color: pointColor},
		})
	}
	return packets
}
