// Package smoketest runs a throwaway planet through a descent and an ascent
// and checks the terrain stays consistent along the way.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	jordhttp "github.com/aukilabs/jord/http"
	"github.com/aukilabs/jord/lod"
	"github.com/aukilabs/jord/mesh"
	"github.com/aukilabs/jord/models"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

const (
	defaultFrames = 120
	defaultRadius = 1000
)

type Options struct {
	LOD  lod.Settings
	Mesh mesh.Settings

	// The simulated duration of a frame.
	FrameDuration time.Duration

	// The maximum number of frames a request can ask for.
	MaxFrames int

	// The maximum number of visual objects. Zero means unlimited.
	PoolCapacity int

	// Called with the result of each run when set.
	SendResult func(context.Context, Result) error
}

type Request struct {
	Frames int     `json:"frames"`
	Radius float32 `json:"radius"`
	Seed   int32   `json:"seed"`
}

type Result struct {
	ID        string `json:"id"`
	Frames    int    `json:"frames"`
	MaxChunks int    `json:"max_chunks"`
	MaxDepth  int    `json:"max_depth"`
	Splits    uint64 `json:"splits"`
	Merges    uint64 `json:"merges"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
}

func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		if opts.MaxFrames > 0 && req.Frames > opts.MaxFrames {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		res := Run(r.Context(), opts, req)
		if !res.Passed {
			logs.WithTag("id", res.ID).
				WithTag("frames", res.Frames).
				Warn(errors.New("smoke test failed").WithTag("reason", res.Error))
		}

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("id", res.ID).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		jordhttp.WriteJSON(w, http.StatusOK, res)
	}
}

// Run flies a camera down to the surface of a new planet and back up, ticking
// its terrain once per frame.
func Run(ctx context.Context, opts Options, req Request) Result {
	if req.Frames <= 0 {
		req.Frames = defaultFrames
	}
	if req.Radius <= 0 {
		req.Radius = defaultRadius
	}
	if opts.FrameDuration <= 0 {
		opts.FrameDuration = time.Millisecond * 15
	}
	if opts.LOD == (lod.Settings{}) {
		opts.LOD = lod.DefaultSettings()
	}
	if opts.Mesh.Resolution == 0 {
		opts.Mesh = mesh.DefaultSettings()
	}

	res := Result{ID: uuid.NewString()}

	if err := run(ctx, opts, req, &res); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Passed = true
	return res
}

func run(ctx context.Context, opts Options, req Request, res *Result) error {
	body := models.NewBody(req.Radius, req.Seed, mgl32.Vec3{})
	pool := models.NewObjectPool("smoketest", opts.PoolCapacity)
	defer models.DeletePoolMetrics(pool.Name)

	m, err := terrain.NewManager(body, pool,
		lod.NewEvaluator(opts.LOD),
		mesh.NewGenerator(opts.Mesh),
	)
	if err != nil {
		return err
	}
	defer m.Close()

	run := opts.FrameDuration * time.Duration(req.Frames)
	camera := models.NewFlybyCamera(body, req.Radius/100, req.Radius*10, run, run)
	vertexCount := opts.Mesh.VertexCount()

	for frame := 1; frame <= req.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		position := camera.Position(opts.FrameDuration * time.Duration(frame))
		if err := m.Tick(ctx, position); err != nil {
			return errors.New("tick failed").
				WithTag("frame", frame).
				Wrap(err)
		}
		res.Frames = frame

		if err := m.CheckInvariants(); err != nil {
			return errors.New("terrain is inconsistent").
				WithTag("frame", frame).
				Wrap(err)
		}

		var meshErr error
		m.Walk(func(c *terrain.Chunk) bool {
			if !c.IsLeaf() {
				return true
			}
			if n := len(c.Object().Mesh.Vertices); n != vertexCount {
				meshErr = errors.New("leaf has unexpected geometry").
					WithTag("frame", frame).
					WithTag("index", c.Index()).
					WithTag("vertices", n)
				return false
			}
			return true
		})
		if meshErr != nil {
			return meshErr
		}

		info := m.DebugInfo()
		res.MaxChunks = max(res.MaxChunks, info.Chunks)
		res.MaxDepth = max(res.MaxDepth, info.MaxDepth)
		res.Splits = info.Splits
		res.Merges = info.Merges

		if info.Leaves != info.Pool.Active {
			return errors.New("leaves and active visual objects differ").
				WithTag("frame", frame).
				WithTag("leaves", info.Leaves).
				WithTag("active", info.Pool.Active)
		}
	}
	return nil
}
