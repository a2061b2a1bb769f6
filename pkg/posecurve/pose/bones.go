package pose

import (
	"errors"
	"fmt"
)

// NoParent marks a root bone.
const NoParent = -1

var ErrInvalidBones = errors.New("invalid bone definitions")

// BoneDef describes one animated bone: the joints its direction is measured
// between, the index of its parent bone (or NoParent) and the GameObject path
// of the bone in the target hierarchy, e.g. "hips/spine/head".
type BoneDef struct {
	Start  float64 `yaml:"start" json:"start"`
	End    float64 `yaml:"end" json:"end"`
	Parent int     `yaml:"parent" json:"parent"`
	Path   string  `yaml:"path" json:"path"`
}

// DefaultBones returns a ten-bone humanoid rig: backbone, head, both arms
// and both legs, with limbs parented to the backbone.
func DefaultBones() []BoneDef {
	return []BoneDef{
		{Start: MidHip, End: Neck, Parent: NoParent, Path: "bone_1/bone_2"},
		{Start: Neck, End: Nose, Parent: 0, Path: "bone_1/bone_2/bone_3"},
		{Start: LShoulder, End: LElbow, Parent: 0, Path: "bone_1/bone_2/bone_4"},
		{Start: LElbow, End: LWrist, Parent: 2, Path: "bone_1/bone_2/bone_4/bone_5"},
		{Start: RShoulder, End: RElbow, Parent: 0, Path: "bone_1/bone_2/bone_6"},
		{Start: RElbow, End: RWrist, Parent: 4, Path: "bone_1/bone_2/bone_6/bone_7"},
		{Start: RHip, End: RKnee, Parent: 0, Path: "bone_1/bone_8"},
		{Start: RKnee, End: RAnkle, Parent: 6, Path: "bone_1/bone_8/bone_9"},
		{Start: LHip, End: LKnee, Parent: 0, Path: "bone_1/bone_10"},
		{Start: LKnee, End: LAnkle, Parent: 8, Path: "bone_1/bone_10/bone_11"},
	}
}

// ValidateBoneDefs checks every definition on its own; cycles are detected
// by SortBoneDefs.
func ValidateBoneDefs(defs []BoneDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: no bones defined", ErrInvalidBones)
	}
	for i, d := range defs {
		switch {
		case !validJoint(d.Start) || !validJoint(d.End):
			return fmt.Errorf("%w: bone %d joints (%g, %g) outside BODY_25", ErrInvalidBones, i, d.Start, d.End)
		case d.Start == d.End:
			return fmt.Errorf("%w: bone %d starts and ends at joint %g", ErrInvalidBones, i, d.Start)
		case d.Parent == i:
			return fmt.Errorf("%w: bone %d is its own parent", ErrInvalidBones, i)
		case d.Parent < NoParent || d.Parent >= len(defs):
			return fmt.Errorf("%w: bone %d parent %d out of range", ErrInvalidBones, i, d.Parent)
		case d.Path == "":
			return fmt.Errorf("%w: bone %d has no path", ErrInvalidBones, i)
		}
	}
	return nil
}

// SortBoneDefs returns a copy of defs ordered so that every parent comes
// before its children, with parent indices rewritten to the new positions.
// Bones already in a valid position keep their relative order.
func SortBoneDefs(defs []BoneDef) ([]BoneDef, error) {
	if err := ValidateBoneDefs(defs); err != nil {
		return nil, err
	}

	n := len(defs)
	order := make([]int, 0, n)
	placed := make([]bool, n)
	visiting := make([]bool, n)

	var visit func(i int) error
	visit = func(i int) error {
		if placed[i] {
			return nil
		}
		if visiting[i] {
			return fmt.Errorf("%w: parent cycle through bone %d", ErrInvalidBones, i)
		}
		visiting[i] = true
		if p := defs[i].Parent; p != NoParent {
			if err := visit(p); err != nil {
				return err
			}
		}
		visiting[i] = false
		placed[i] = true
		order = append(order, i)
		return nil
	}

	for i := range defs {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	position := make([]int, n)
	for pos, old := range order {
		position[old] = pos
	}

	sorted := make([]BoneDef, n)
	for pos, old := range order {
		d := defs[old]
		if d.Parent != NoParent {
			d.Parent = position[d.Parent]
		}
		sorted[pos] = d
	}
	return sorted, nil
}
