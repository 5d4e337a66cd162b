package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/jord/featureflag"
	jordhttp "github.com/aukilabs/jord/http"
	"github.com/aukilabs/jord/lod"
	"github.com/aukilabs/jord/mesh"
	"github.com/aukilabs/jord/models"
	"github.com/aukilabs/jord/shader"
	"github.com/aukilabs/jord/smoketest"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The Jord version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "jord_info",
		Help:        "Jord information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr          string        `cli:""        env:"JORD_ADDR"           help:"Listening address for the terrain service."`
	AdminAddr     string        `cli:""        env:"JORD_ADMIN_ADDR"     help:"Admin listening address."`
	LogLevel      string        `cli:""        env:"JORD_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	LogIndent     bool          `cli:""        env:"JORD_LOG_INDENT"     help:"Indent logs."`
	FrameDuration time.Duration `cli:",hidden" env:"JORD_FRAME_DURATION" help:"The duration of a terrain frame."`
	PoolCapacity  int           `cli:",hidden" env:"JORD_POOL_CAPACITY"  help:"The maximum number of chunk visual objects. 0 means unlimited."`
	KernelDir     string        `cli:",hidden" env:"JORD_KERNEL_DIR"     help:"Directory where compiled kernels and their input buffers are written."`
	Body          bodyConfig    `cli:",hidden" env:"-"                   help:"Body configuration."`
	LOD           lodConfig     `cli:",hidden" env:"-"                   help:"Level of detail configuration."`
	Terrain       terrainConfig `cli:",hidden" env:"-"                   help:"Terrain generation configuration."`
	Camera        cameraConfig  `cli:",hidden" env:"-"                   help:"Fly-by camera configuration."`
	Events        eventsConfig  `cli:",hidden" env:"-"                   help:"Event pusher configuration."`
	FeatureFlags  []string      `cli:",hidden" env:"JORD_FEATURE_FLAGS"  help:"Comma separated feature flags"`
	Version       bool          `cli:""        env:"-"                   help:"Show version."`
	Help          bool          `cli:""        env:"-"                   help:"Show help."`
}

type bodyConfig struct {
	MinRadius int     `cli:",hidden" env:"JORD_BODY_MIN_RADIUS" help:"The minimum radius of the body."`
	MaxRadius int     `cli:",hidden" env:"JORD_BODY_MAX_RADIUS" help:"The maximum radius of the body."`
	Seed      int64   `cli:",hidden" env:"JORD_BODY_SEED"       help:"The seed the body radius and terrain seed are drawn from. 0 picks one from the clock."`
	X         float32 `cli:",hidden" env:"JORD_BODY_X"          help:"The body position on the x axis."`
	Y         float32 `cli:",hidden" env:"JORD_BODY_Y"          help:"The body position on the y axis."`
	Z         float32 `cli:",hidden" env:"JORD_BODY_Z"          help:"The body position on the z axis."`
}

type lodConfig struct {
	Threshold         float32 `cli:",hidden" env:"JORD_LOD_THRESHOLD"           help:"Relative screen size of a chunk above which it is split."`
	MaxChunkSize      float32 `cli:",hidden" env:"JORD_LOD_MAX_CHUNK_SIZE"      help:"Chunks that are not bigger than this are never split."`
	MaxDetailDistance float32 `cli:",hidden" env:"JORD_LOD_MAX_DETAIL_DISTANCE" help:"Chunks closer than this are rendered at max detail."`
	FalloffPower      float32 `cli:",hidden" env:"JORD_LOD_FALLOFF_POWER"       help:"How fast detail decreases past the max detail distance."`
	FalloffDistance   float32 `cli:",hidden" env:"JORD_LOD_FALLOFF_DISTANCE"    help:"The width of the falloff zone. 0 disables falloff."`
}

type terrainConfig struct {
	Resolution int     `cli:",hidden" env:"JORD_TERRAIN_RESOLUTION" help:"The number of vertices along each side of a chunk."`
	Amplitude  float32 `cli:",hidden" env:"JORD_TERRAIN_AMPLITUDE"  help:"The terrain height relative to the body radius."`
	Octaves    int     `cli:",hidden" env:"JORD_TERRAIN_OCTAVES"    help:"The number of noise octaves."`
	Frequency  float32 `cli:",hidden" env:"JORD_TERRAIN_FREQUENCY"  help:"The base noise frequency."`
	Lacunarity float32 `cli:",hidden" env:"JORD_TERRAIN_LACUNARITY" help:"The frequency multiplier between octaves."`
	Gain       float32 `cli:",hidden" env:"JORD_TERRAIN_GAIN"       help:"The amplitude multiplier between octaves."`
}

type cameraConfig struct {
	MinAltitude float32       `cli:",hidden" env:"JORD_CAMERA_MIN_ALTITUDE" help:"The lowest camera altitude above the surface."`
	MaxAltitude float32       `cli:",hidden" env:"JORD_CAMERA_MAX_ALTITUDE" help:"The highest camera altitude above the surface."`
	OrbitPeriod time.Duration `cli:",hidden" env:"JORD_CAMERA_ORBIT_PERIOD" help:"The time the camera takes to orbit the body."`
	DivePeriod  time.Duration `cli:",hidden" env:"JORD_CAMERA_DIVE_PERIOD"  help:"The time the camera takes to dive to the min altitude and back."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"JORD_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"JORD_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"JORD_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"JORD_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	lodSettings := lod.DefaultSettings()
	meshSettings := mesh.DefaultSettings()

	conf := config{
		Addr:          ":4000",
		AdminAddr:     ":18190",
		LogLevel:      logs.InfoLevel.String(),
		FrameDuration: time.Millisecond * 15,
		Body: bodyConfig{
			MinRadius: 4000,
			MaxRadius: 8000,
		},
		LOD: lodConfig{
			Threshold:         lodSettings.LODThreshold,
			MaxChunkSize:      lodSettings.MaxChunkSize,
			MaxDetailDistance: lodSettings.MaxDetailDistance,
			FalloffPower:      lodSettings.FalloffPower,
			FalloffDistance:   lodSettings.FalloffDistance,
		},
		Terrain: terrainConfig{
			Resolution: meshSettings.Resolution,
			Amplitude:  meshSettings.Amplitude,
			Octaves:    meshSettings.Octaves,
			Frequency:  meshSettings.Frequency,
			Lacunarity: meshSettings.Lacunarity,
			Gain:       meshSettings.Gain,
		},
		Camera: cameraConfig{
			MinAltitude: 50,
			MaxAltitude: 20000,
			OrbitPeriod: time.Minute * 5,
			DivePeriod:  time.Minute * 2,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Jord terrain server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "jord",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	lodSettings = lod.Settings{
		LODThreshold:      conf.LOD.Threshold,
		MaxChunkSize:      conf.LOD.MaxChunkSize,
		MaxDetailDistance: conf.LOD.MaxDetailDistance,
		FalloffPower:      conf.LOD.FalloffPower,
		FalloffDistance:   conf.LOD.FalloffDistance,
	}
	meshSettings = mesh.Settings{
		Resolution: conf.Terrain.Resolution,
		Amplitude:  conf.Terrain.Amplitude,
		Octaves:    conf.Terrain.Octaves,
		Frequency:  conf.Terrain.Frequency,
		Lacunarity: conf.Terrain.Lacunarity,
		Gain:       conf.Terrain.Gain,
	}

	seed := conf.Body.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	body := models.NewRandomBody(rand.New(rand.NewSource(seed)),
		conf.Body.MinRadius,
		conf.Body.MaxRadius,
		mgl32.Vec3{conf.Body.X, conf.Body.Y, conf.Body.Z},
	)

	var evaluator terrain.LODEvaluator = lod.NewEvaluator(lodSettings)
	evaluator = lod.WithLogs(evaluator, body.ID)
	evaluator = lod.WithMetrics(evaluator, body.ID)

	var generator terrain.MeshGenerator = mesh.NewGenerator(meshSettings)
	generator = mesh.WithLogs(generator, body.ID)
	generator = mesh.WithMetrics(generator, body.ID)

	flags := featureflag.New(conf.FeatureFlags)
	manager, err := terrain.NewManager(body,
		models.NewObjectPool("terrain", conf.PoolCapacity),
		evaluator,
		generator,
		terrain.WithFeatureFlags(flags),
	)
	if err != nil {
		logs.Fatal(errors.New("creating terrain failed").Wrap(err))
	}
	defer manager.Close()

	camera := models.NewFlybyCamera(body,
		conf.Camera.MinAltitude,
		conf.Camera.MaxAltitude,
		conf.Camera.OrbitPeriod,
		conf.Camera.DivePeriod,
	)

	compileKernels(conf.KernelDir, manager, camera, lodSettings, meshSettings)

	var ready atomic.Bool
	start := time.Now()
	frames := models.NewFrameLoop(conf.FrameDuration)
	frames.HandleFrame(func(f models.Frame) {
		if err := manager.Tick(ctx, camera.Position(f.Time.Sub(start))); err != nil {
			logs.WithTag("body_id", body.ID).
				WithTag("frame", f.Number).
				Warn(err)
			return
		}
		ready.Store(true)
	})
	go frames.StartDispatchFrames()
	defer frames.Close()

	readinessCheck := func() bool {
		return ready.Load()
	}

	var service http.ServeMux
	service.HandleFunc("/health", jordhttp.HandleHealthCheck)
	service.HandleFunc("/ready", jordhttp.HandleReadyCheck(readinessCheck))
	service.HandleFunc("/version", jordhttp.HandleVersion(version))
	service.HandleFunc("/debug/terrain", jordhttp.HandleDebugInfo(manager.DebugInfo))
	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		LOD:           lodSettings,
		Mesh:          meshSettings,
		FrameDuration: conf.FrameDuration,
		MaxFrames:     2000,
		PoolCapacity:  conf.PoolCapacity,
		SendResult: func(ctx context.Context, res smoketest.Result) error {
			logs.WithTag("id", res.ID).
				WithTag("frames", res.Frames).
				WithTag("max_chunks", res.MaxChunks).
				WithTag("splits", res.Splits).
				WithTag("merges", res.Merges).
				WithTag("passed", res.Passed).
				Info("smoke test completed")
			return nil
		},
	}))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", jordhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", jordhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("body_id", body.ID).
		WithTag("body_radius", body.Radius).
		WithTag("body_seed", body.Seed).
		WithTag("feature_flags", flags.List()).
		Info("starting jord server")

	jordhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			jordhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// compileKernels checks the compute kernels compile. When dir is set, each
// kernel is written there with its inputs for the initial terrain, ready to be
// dispatched by a GPU host. Terrain is generated on the CPU either way.
func compileKernels(
	dir string,
	manager *terrain.Manager,
	camera models.FlybyCamera,
	lodSettings lod.Settings,
	meshSettings mesh.Settings,
) {
	body := manager.Body()
	descs := manager.Descriptors()

	for _, k := range shader.Kernels {
		words, err := shader.Compile(k)
		if err != nil {
			logs.Warn(err)
			continue
		}

		logs.WithTag("kernel", k).
			WithTag("words", len(words)).
			Debug("kernel compiled")

		if dir == "" {
			continue
		}

		var bundle shader.Bundle
		switch k {
		case shader.LODKernel:
			bundle = shader.NewLODBundle(words, lodSettings, terrain.LODRequest{
				Camera:       camera.Position(0),
				BodyPosition: body.Transform.Position,
				BodyRadius:   body.Radius,
				Mode:         terrain.SplitMode,
			}, descs)

		case shader.TerrainKernel:
			bundle = shader.NewTerrainBundle(words, meshSettings, body.Radius, body.Seed, descs)

		default:
			continue
		}

		m, err := bundle.Write(dir)
		if err != nil {
			logs.Warn(err)
			continue
		}

		logs.WithTag("kernel", k).
			WithTag("dir", dir).
			WithTag("dispatch", m.Dispatch).
			Info("kernel bundle written")
	}
}

func validateConfig(conf config) error {
	if conf.Terrain.Resolution < 2 {
		return errors.New("terrain resolution must be at least 2").
			WithTag("resolution", conf.Terrain.Resolution)
	}

	if conf.LOD.MaxChunkSize <= 0 {
		return errors.New("max chunk size must be positive").
			WithTag("max_chunk_size", conf.LOD.MaxChunkSize)
	}

	if conf.Body.MinRadius <= 0 || conf.Body.MinRadius > conf.Body.MaxRadius {
		return errors.New("invalid body radius range").
			WithTag("min_radius", conf.Body.MinRadius).
			WithTag("max_radius", conf.Body.MaxRadius)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	return nil
}
