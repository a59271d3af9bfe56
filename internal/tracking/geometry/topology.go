package geometry

import (
	"fmt"
	"math"
)

// WireID identifies a sense wire by superlayer, layer within the superlayer
// and wire number within the layer.
type WireID struct {
	SuperLayer uint16
	Layer      uint16
	Wire       uint16
}

// Encode packs the id into the compact EWire form sl*4096 + layer*512 + wire.
// The encoded value orders wires by superlayer, layer and wire number.
func (id WireID) Encode() uint32 {
	return uint32(id.SuperLayer)*4096 + uint32(id.Layer)*512 + uint32(id.Wire)
}

// DecodeWireID is the inverse of Encode.
func DecodeWireID(e uint32) WireID {
	return WireID{
		SuperLayer: uint16(e / 4096),
		Layer:      uint16((e % 4096) / 512),
		Wire:       uint16(e % 512),
	}
}

func (id WireID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.SuperLayer, id.Layer, id.Wire)
}

// LayerSpec describes one wire layer.
type LayerSpec struct {
	Radius float64 // cm
	NWires int
	// Offset is the stagger in units of the cell width; neighbouring layers
	// within a superlayer alternate between 0 and 0.5.
	Offset float64
}

// SuperLayerSpec describes a group of layers sharing a wire count.
type SuperLayerSpec struct {
	Stereo bool
	Layers []LayerSpec
}

// Wire is the immutable description of one sense wire.
type Wire struct {
	ID        WireID
	RefPos    Vector2D
	Radius    float64
	CellWidth float64
	Stereo    bool
}

// Topology is the wire layout seen by the track finder. It only knows the
// axial projection of every wire; stereo wires are placed at their
// reference position.
type Topology struct {
	superLayers []SuperLayerSpec
}

// Default layout constants of the ideal chamber.
var (
	idealWireCounts = []int{160, 160, 192, 224, 256, 288, 320, 352, 384}
)

const (
	idealInnerRadius      = 16.8 // cm, first layer of superlayer 0
	idealInnerLayerPitch  = 1.0  // cm, layer pitch in superlayer 0
	idealOuterStartRadius = 25.7 // cm, first layer of superlayer 1
	idealOuterLayerPitch  = 1.8  // cm, layer pitch in superlayers 1-8
)

// IdealTopology returns the ideal nine-superlayer layout: eight layers in
// the innermost superlayer, six in the others, with alternating axial and
// stereo superlayers starting axial.
func IdealTopology() *Topology {
	sls := make([]SuperLayerSpec, len(idealWireCounts))
	for sl, nWires := range idealWireCounts {
		nLayers := 6
		if sl == 0 {
			nLayers = 8
		}
		layers := make([]LayerSpec, nLayers)
		for l := range layers {
			var r float64
			if sl == 0 {
				r = idealInnerRadius + idealInnerLayerPitch*float64(l)
			} else {
				r = idealOuterStartRadius + float64(sl-1)*6*idealOuterLayerPitch + idealOuterLayerPitch*float64(l)
			}
			layers[l] = LayerSpec{Radius: r, NWires: nWires, Offset: 0.5 * float64(l%2)}
		}
		sls[sl] = SuperLayerSpec{Stereo: sl%2 == 1, Layers: layers}
	}
	return &Topology{superLayers: sls}
}

// NewTopology builds a topology from explicit superlayer specs.
func NewTopology(superLayers []SuperLayerSpec) *Topology {
	return &Topology{superLayers: superLayers}
}

// NSuperLayers returns the number of superlayers.
func (t *Topology) NSuperLayers() int { return len(t.superLayers) }

// NLayers returns the number of layers in a superlayer.
func (t *Topology) NLayers(sl int) int {
	if sl < 0 || sl >= len(t.superLayers) {
		return 0
	}
	return len(t.superLayers[sl].Layers)
}

// IsAxial reports whether the superlayer holds axial wires.
func (t *Topology) IsAxial(sl int) bool {
	return sl >= 0 && sl < len(t.superLayers) && !t.superLayers[sl].Stereo
}

// Valid reports whether id names an existing wire.
func (t *Topology) Valid(id WireID) bool {
	sl := int(id.SuperLayer)
	if sl >= len(t.superLayers) {
		return false
	}
	layers := t.superLayers[sl].Layers
	if int(id.Layer) >= len(layers) {
		return false
	}
	return int(id.Wire) < layers[id.Layer].NWires
}

// Layer returns the layer spec; id must be valid.
func (t *Topology) Layer(id WireID) LayerSpec {
	return t.superLayers[id.SuperLayer].Layers[id.Layer]
}

// Wire returns the wire description; id must be valid.
func (t *Topology) Wire(id WireID) Wire {
	sl := t.superLayers[id.SuperLayer]
	layer := sl.Layers[id.Layer]
	phi := 2 * math.Pi * (float64(id.Wire) + layer.Offset) / float64(layer.NWires)
	return Wire{
		ID:        id,
		RefPos:    NewPolar(layer.Radius, phi),
		Radius:    layer.Radius,
		CellWidth: 2 * math.Pi * layer.Radius / float64(layer.NWires),
		Stereo:    sl.Stereo,
	}
}

// WireAt returns the wire of the given layer whose azimuth is closest to phi.
func (t *Topology) WireAt(sl, layer int, phi float64) WireID {
	spec := t.superLayers[sl].Layers[layer]
	n := spec.NWires
	u := phi*float64(n)/(2*math.Pi) - spec.Offset
	w := int(math.Round(u)) % n
	if w < 0 {
		w += n
	}
	return WireID{SuperLayer: uint16(sl), Layer: uint16(layer), Wire: uint16(w)}
}

// PrimaryNeighbors returns the up to six closest wires of the same
// superlayer in a fixed order: counterclockwise and clockwise in the same
// layer, then two in the inner layer, then two in the outer layer.
func (t *Topology) PrimaryNeighbors(id WireID) []WireID {
	out := make([]WireID, 0, 6)
	out = append(out, t.shifted(id, int(id.Layer), 1), t.shifted(id, int(id.Layer), -1))
	for _, dl := range []int{-1, 1} {
		l := int(id.Layer) + dl
		if l < 0 || l >= t.NLayers(int(id.SuperLayer)) {
			continue
		}
		below := t.floorInLayer(id, l)
		out = append(out, t.shifted(id, l, below), t.shifted(id, l, below+1))
	}
	return out
}

// SecondaryNeighbors returns the up to twelve wires of the second ring
// around id: two steps away in the same layer, the outer pair of the
// adjacent layers and three wires two layers away.
func (t *Topology) SecondaryNeighbors(id WireID) []WireID {
	out := make([]WireID, 0, 12)
	out = append(out, t.shifted(id, int(id.Layer), 2), t.shifted(id, int(id.Layer), -2))
	nLayers := t.NLayers(int(id.SuperLayer))
	for _, dl := range []int{-1, 1} {
		l := int(id.Layer) + dl
		if l < 0 || l >= nLayers {
			continue
		}
		below := t.floorInLayer(id, l)
		out = append(out, t.shifted(id, l, below-1), t.shifted(id, l, below+2))
	}
	for _, dl := range []int{-2, 2} {
		l := int(id.Layer) + dl
		if l < 0 || l >= nLayers {
			continue
		}
		below := t.floorInLayer(id, l)
		out = append(out, t.shifted(id, l, below-1), t.shifted(id, l, below), t.shifted(id, l, below+1))
	}
	return out
}

// floorInLayer returns the wire offset, relative to id.Wire, of the wire in
// layer l that lies at or just clockwise of id's azimuth.
func (t *Topology) floorInLayer(id WireID, l int) int {
	layers := t.superLayers[id.SuperLayer].Layers
	own := layers[id.Layer]
	other := layers[l]
	u := (float64(id.Wire)+own.Offset)*float64(other.NWires)/float64(own.NWires) - other.Offset
	return int(math.Floor(u+1e-9)) - int(id.Wire)
}

func (t *Topology) shifted(id WireID, layer, dw int) WireID {
	n := t.superLayers[id.SuperLayer].Layers[layer].NWires
	w := (int(id.Wire) + dw) % n
	if w < 0 {
		w += n
	}
	return WireID{SuperLayer: id.SuperLayer, Layer: uint16(layer), Wire: uint16(w)}
}
