package grove3d

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// AnimationFrame is one sampled pose of an animation. Each property carries
// a presence flag; an absent property leaves the node's manually set value
// untouched when the frame is applied.
type AnimationFrame struct {
	Location    mgl32.Vec3
	HasLocation bool

	Rotation    mgl32.Quat
	HasRotation bool

	Scale    mgl32.Vec3
	HasScale bool
}

// AnimationSource supplies poses to the blend engine. Implementations are
// external collaborators (asset pipelines, procedural generators); the
// engine only ever calls Sample with t clamped to [0, 1].
type AnimationSource interface {
	// Sample returns the pose at normalized time t in [0, 1].
	Sample(t float32) AnimationFrame
	// Duration returns the animation's length in seconds.
	Duration() float32
	// FrameCount returns the number of authored keyframe frames, for
	// frame-index segment derivation.
	FrameCount() int
}

// AnimationState is the playback state of one animation track on one node:
// the current normalized time, the blend weight, and three levels of gating
// (node-wide enable, per-track enable, per-property enables). A state with a
// zero weight or any gate off contributes nothing to the blend.
type AnimationState struct {
	source AnimationSource

	time  float32
	frame AnimationFrame

	// Enabled gates the whole track.
	Enabled bool
	// LocationEnabled, RotationEnabled, and ScaleEnabled gate individual
	// properties of the track.
	LocationEnabled bool
	RotationEnabled bool
	ScaleEnabled    bool

	weight      float32
	weightTween *gween.Tween
}

func newAnimationState(source AnimationSource) *AnimationState {
	return &AnimationState{
		source:          source,
		Enabled:         true,
		LocationEnabled: true,
		RotationEnabled: true,
		ScaleEnabled:    true,
		weight:          1,
	}
}

// Source returns the track's animation source.
func (state *AnimationState) Source() AnimationSource { return state.source }

// Time returns the track's current normalized time in [0, 1].
func (state *AnimationState) Time() float32 { return state.time }

// Frame returns the most recently sampled pose.
func (state *AnimationState) Frame() AnimationFrame { return state.frame }

// Weight returns the track's blend weight.
func (state *AnimationState) Weight() float32 { return state.weight }

// SetWeight sets the track's blend weight. Weights are relative: what
// matters is each track's share of the total across contributing tracks. A
// negative weight returns ErrInvalidArgument. Setting a weight cancels any
// fade in progress.
func (state *AnimationState) SetWeight(weight float32) error {
	if weight < 0 {
		return errors.Wrap(ErrInvalidArgument, "negative animation blend weight")
	}
	state.weight = weight
	state.weightTween = nil
	return nil
}

// FadeTo eases the track's blend weight toward the given value over the
// given duration in seconds, using the easing function. Fades advance during
// the scene update pass. A negative target weight returns ErrInvalidArgument.
func (state *AnimationState) FadeTo(weight, duration float32, easing ease.TweenFunc) error {
	if weight < 0 {
		return errors.Wrap(ErrInvalidArgument, "negative animation blend weight")
	}
	if easing == nil {
		easing = ease.Linear
	}
	state.weightTween = gween.New(state.weight, weight, duration, easing)
	return nil
}

// advanceFade steps the weight fade by dt seconds. Returns whether the
// weight changed.
func (state *AnimationState) advanceFade(dt float32) bool {
	if state.weightTween == nil {
		return false
	}
	value, finished := state.weightTween.Update(dt)
	state.weight = value
	if finished {
		state.weightTween = nil
	}
	return true
}

func (state *AnimationState) sampleAt(t float32) {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	state.time = t
	state.frame = state.source.Sample(t)
}

// AnimationEnabled returns whether animation as a whole is enabled on the
// node. The node-wide gate multiplies with the per-track and per-property
// gates.
func (node *Node) AnimationEnabled() bool { return node.animationEnabled }

// SetAnimationEnabled switches animation on or off for the node as a whole.
// Disabling does not clear track state; re-enabling resumes where the
// tracks left off.
func (node *Node) SetAnimationEnabled(enabled bool) {
	node.animationEnabled = enabled
	if len(node.animationStates) > 0 {
		node.animationDirty = true
		node.markTransformDirty()
	}
}

// AddAnimation installs the source on the given track of this node,
// replacing any source already on that track. The new track starts enabled
// with weight 1 at time 0.
func (node *Node) AddAnimation(trackID int, source AnimationSource) {
	if source == nil {
		log.Println("warning: nil animation source ignored for node", node.name)
		return
	}
	if node.animationStates == nil {
		node.animationStates = map[int]*AnimationState{}
	}
	state := newAnimationState(source)
	state.sampleAt(0)
	node.animationStates[trackID] = state
	node.animationDirty = true
	node.markTransformDirty()
}

// Animation returns the state of the given track, or nil when the track has
// no animation installed.
func (node *Node) Animation(trackID int) *AnimationState {
	return node.animationStates[trackID]
}

// RemoveAnimation uninstalls the given track. Removing a track that was
// never installed is a no-op.
func (node *Node) RemoveAnimation(trackID int) {
	if _, ok := node.animationStates[trackID]; !ok {
		return
	}
	delete(node.animationStates, trackID)
	node.animationDirty = true
	node.markTransformDirty()
}

// EstablishAnimationFrameAt moves the given track to normalized time t (in
// [0, 1], clamped), re-samples its pose, and propagates the same call to
// every child, so a whole model subtree advances on a shared clock. Nodes
// without the track installed just forward the call downward.
func (node *Node) EstablishAnimationFrameAt(t float32, trackID int) {

	if state, ok := node.animationStates[trackID]; ok {
		state.sampleAt(t)
		node.animationDirty = true
		node.markTransformDirty()
	}

	for _, child := range node.children {
		child.EstablishAnimationFrameAt(t, trackID)
	}
}

// advanceAnimationFades steps every track's weight fade during the update pass.
func (node *Node) advanceAnimationFades(dt float32) {
	for _, state := range node.animationStates {
		if state.advanceFade(dt) {
			node.animationDirty = true
			node.markTransformDirty()
		}
	}
}

// applyAnimationBlend folds the sampled poses of all contributing tracks
// into the node's local transform as a per-property weighted average. A
// property is touched only when at least one contributing track supplies
// it; each property blends over exactly the tracks that both supply and
// enable it, so a location-only track never dilutes another track's
// rotation. Rotations average by successive normalized slerp over tracks in
// ascending track-id order, which keeps the result deterministic.
func (node *Node) applyAnimationBlend() {

	node.animationDirty = false

	if !node.animationEnabled || len(node.animationStates) == 0 {
		return
	}

	trackIDs := make([]int, 0, len(node.animationStates))
	for id, state := range node.animationStates {
		if state.Enabled && state.weight > 0 {
			trackIDs = append(trackIDs, id)
		}
	}
	if len(trackIDs) == 0 {
		return
	}
	sort.Ints(trackIDs)

	var (
		locationSum    mgl32.Vec3
		locationWeight float32
		scaleSum       mgl32.Vec3
		scaleWeight    float32
		rotation       mgl32.Quat
		rotationWeight float32
	)

	for _, id := range trackIDs {

		state := node.animationStates[id]
		frame := state.frame
		w := state.weight

		if frame.HasLocation && state.LocationEnabled {
			locationSum = locationSum.Add(frame.Location.Mul(w))
			locationWeight += w
		}
		if frame.HasScale && state.ScaleEnabled {
			scaleSum = scaleSum.Add(frame.Scale.Mul(w))
			scaleWeight += w
		}
		if frame.HasRotation && state.RotationEnabled {
			if rotationWeight == 0 {
				rotation = frame.Rotation
			} else {
				rotation = mgl32.QuatSlerp(rotation, frame.Rotation, w/(rotationWeight+w))
			}
			rotationWeight += w
		}
	}

	if locationWeight > 0 {
		node.location = locationSum.Mul(1 / locationWeight)
	}
	if scaleWeight > 0 {
		node.scale = scaleSum.Mul(1 / scaleWeight)
	}
	if rotationWeight > 0 && !node.isTrackingRotation() {
		node.rotator.SetQuaternion(rotation)
	}
}

// vectorKeyframe and quatKeyframe are authored key poses on a normalized
// [0, 1] timeline.
type vectorKeyframe struct {
	time  float32
	value mgl32.Vec3
}

type quatKeyframe struct {
	time  float32
	value mgl32.Quat
}

// SampledAnimation is a concrete keyframe AnimationSource: channels of
// location, rotation, and scale keys on a shared normalized timeline.
// Location and scale interpolate linearly between keys; rotation
// interpolates by slerp. Sampling before the first key or after the last
// clamps to it. A channel with no keys is absent from the sampled frames.
type SampledAnimation struct {
	name     string
	duration float32

	locationKeys []vectorKeyframe
	rotationKeys []quatKeyframe
	scaleKeys    []vectorKeyframe
}

// NewSampledAnimation returns an empty keyframe animation with the given
// name and duration in seconds.
func NewSampledAnimation(name string, duration float32) *SampledAnimation {
	return &SampledAnimation{name: name, duration: duration}
}

// Name returns the animation's name.
func (anim *SampledAnimation) Name() string { return anim.name }

// Duration returns the animation's length in seconds.
func (anim *SampledAnimation) Duration() float32 { return anim.duration }

// FrameCount returns the largest channel's key count.
func (anim *SampledAnimation) FrameCount() int {
	count := len(anim.locationKeys)
	if len(anim.rotationKeys) > count {
		count = len(anim.rotationKeys)
	}
	if len(anim.scaleKeys) > count {
		count = len(anim.scaleKeys)
	}
	return count
}

// AddLocationKey appends a location key at normalized time t. Keys must be
// added in ascending time order.
func (anim *SampledAnimation) AddLocationKey(t float32, location mgl32.Vec3) {
	anim.locationKeys = append(anim.locationKeys, vectorKeyframe{time: t, value: location})
}

// AddRotationKey appends a rotation key at normalized time t. Keys must be
// added in ascending time order.
func (anim *SampledAnimation) AddRotationKey(t float32, rotation mgl32.Quat) {
	anim.rotationKeys = append(anim.rotationKeys, quatKeyframe{time: t, value: rotation.Normalize()})
}

// AddScaleKey appends a scale key at normalized time t. Keys must be added
// in ascending time order.
func (anim *SampledAnimation) AddScaleKey(t float32, scale mgl32.Vec3) {
	anim.scaleKeys = append(anim.scaleKeys, vectorKeyframe{time: t, value: scale})
}

// Sample returns the interpolated pose at normalized time t.
func (anim *SampledAnimation) Sample(t float32) AnimationFrame {

	frame := AnimationFrame{}

	if loc, ok := sampleVectorKeys(anim.locationKeys, t); ok {
		frame.Location = loc
		frame.HasLocation = true
	}
	if rot, ok := sampleQuatKeys(anim.rotationKeys, t); ok {
		frame.Rotation = rot
		frame.HasRotation = true
	}
	if scale, ok := sampleVectorKeys(anim.scaleKeys, t); ok {
		frame.Scale = scale
		frame.HasScale = true
	}

	return frame
}

func sampleVectorKeys(keys []vectorKeyframe, t float32) (mgl32.Vec3, bool) {

	if len(keys) == 0 {
		return mgl32.Vec3{}, false
	}
	if t <= keys[0].time {
		return keys[0].value, true
	}
	last := keys[len(keys)-1]
	if t >= last.time {
		return last.value, true
	}

	for i := 1; i < len(keys); i++ {
		if t > keys[i].time {
			continue
		}
		prev, next := keys[i-1], keys[i]
		span := next.time - prev.time
		if span <= 0 {
			return next.value, true
		}
		f := (t - prev.time) / span
		return prev.value.Add(next.value.Sub(prev.value).Mul(f)), true
	}

	return last.value, true
}

func sampleQuatKeys(keys []quatKeyframe, t float32) (mgl32.Quat, bool) {

	if len(keys) == 0 {
		return mgl32.Quat{}, false
	}
	if t <= keys[0].time {
		return keys[0].value, true
	}
	last := keys[len(keys)-1]
	if t >= last.time {
		return last.value, true
	}

	for i := 1; i < len(keys); i++ {
		if t > keys[i].time {
			continue
		}
		prev, next := keys[i-1], keys[i]
		span := next.time - prev.time
		if span <= 0 {
			return next.value, true
		}
		f := (t - prev.time) / span
		return mgl32.QuatSlerp(prev.value, next.value, f), true
	}

	return last.value, true
}

// AnimationSegment exposes a sub-range [start, end] of a base source's
// normalized timeline as a full [0, 1] animation of its own, so one long
// authored strip can serve as many logical animations.
type AnimationSegment struct {
	base  AnimationSource
	start float32
	end   float32
}

// NewAnimationSegment derives the sub-animation covering normalized times
// [start, end] of the base source. Returns ErrInvalidArgument unless
// 0 <= start < end <= 1.
func NewAnimationSegment(base AnimationSource, start, end float32) (*AnimationSegment, error) {
	if base == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil base animation")
	}
	if start < 0 || end > 1 || start >= end {
		return nil, errors.Wrap(ErrInvalidArgument, "animation segment range must satisfy 0 <= start < end <= 1")
	}
	return &AnimationSegment{base: base, start: start, end: end}, nil
}

// NewAnimationFrameSegment derives the sub-animation covering the inclusive
// frame-index range [first, last] of the base source's authored frames. A
// range of a single frame (first == last) yields a held pose.
func NewAnimationFrameSegment(base AnimationSource, first, last int) (*AnimationSegment, error) {
	if base == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil base animation")
	}
	frameCount := base.FrameCount()
	if frameCount == 0 || first < 0 || last >= frameCount || first > last {
		return nil, errors.Wrap(ErrInvalidArgument, "animation frame segment range out of bounds")
	}
	var start, end float32
	if frameCount > 1 {
		span := float32(frameCount - 1)
		start = float32(first) / span
		end = float32(last) / span
	}
	return &AnimationSegment{base: base, start: start, end: end}, nil
}

// Sample maps t in [0, 1] onto the segment's slice of the base timeline.
func (seg *AnimationSegment) Sample(t float32) AnimationFrame {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return seg.base.Sample(seg.start + (seg.end-seg.start)*t)
}

// Duration returns the segment's share of the base animation's duration.
func (seg *AnimationSegment) Duration() float32 {
	return seg.base.Duration() * (seg.end - seg.start)
}

// FrameCount returns the approximate number of authored frames the segment spans.
func (seg *AnimationSegment) FrameCount() int {
	if base := seg.base.FrameCount(); base > 1 {
		return int((seg.end-seg.start)*float32(base-1)) + 1
	}
	return seg.base.FrameCount()
}
