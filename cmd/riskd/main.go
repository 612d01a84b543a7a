package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/core"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/schema"
)

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Errorf(string, ...interface{}) {}

func main() {
	settingsPath := flag.String("settings", "risk_settings.json", "Path to the flat risk settings document")
	scenarioPath := flag.String("scenario", "", "Path to a paper scenario (contracts + tick tape)")
	timerInterval := flag.Duration("timer-interval", time.Second, "Bus timer event interval")
	tickInterval := flag.Duration("tick-interval", 100*time.Millisecond, "Tape replay interval")
	queueCapacity := flag.Int("queue-capacity", 0, "Bus queue capacity (0=unbounded)")
	saveOnExit := flag.Bool("save-settings", true, "Serialize the full settings set on shutdown")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "riskd",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"env": "local",
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start failed, err: %+v", err)
			os.Exit(1)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	cfg, err := ops.LoadRiskConfig(*settingsPath)
	if err != nil {
		logs.Errorf("load risk settings, err: %+v", err)
		os.Exit(1)
	}

	metrics := obs.NewMetrics()
	eventBus := bus.NewEngine(*timerInterval, metrics)
	if *queueCapacity > 0 {
		eventBus.SetCapacity(*queueCapacity)
	}
	cache := oms.NewCache(eventBus)
	riskEngine := risk.NewEngine(cfg, eventBus, cache, metrics)
	sim := gateway.NewSim(gateway.SimConfig{}, eventBus)
	engine := core.New(eventBus, cache, sim, riskEngine)
	riskEngine.InstallSafety(engine.CancelAllOrders, engine.SendOrder)

	eventBus.Start()
	defer eventBus.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *scenarioPath != "" {
		scenario, err := gateway.LoadScenario(*scenarioPath)
		if err != nil {
			logs.Errorf("load scenario, err: %+v", err)
			os.Exit(1)
		}
		contracts := make([]schema.Contract, 0, len(scenario.Contracts))
		for _, spec := range scenario.Contracts {
			contracts = append(contracts, spec.Contract())
		}
		sim.Connect(contracts...)
		go replayTape(ctx, sim, scenario.Ticks, *tickInterval)
		logs.Infof("paper scenario loaded. contracts: %d, ticks: %d", len(contracts), len(scenario.Ticks))
	} else {
		sim.Connect()
	}

	logs.Info("riskd started")
	select {
	case <-ctx.Done():
	case <-sys.Shutdown():
	}

	if *saveOnExit {
		if err := ops.SaveRiskConfig(*settingsPath, riskEngine.Config()); err != nil {
			logs.Errorf("save risk settings, err: %+v", err)
		}
	}
	snapshot := metrics.Snapshot()
	logs.Infof("riskd stopped. events: %v, rejects: %v, panics: %d, drops: %d",
		snapshot.EventCounts, snapshot.GateRejects, snapshot.HandlerPanics, snapshot.QueueDrops)
}

func replayTape(ctx context.Context, sim *gateway.Sim, ticks []gateway.TickSpec, interval time.Duration) {
	if len(ticks) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sim.PublishTick(ticks[i%len(ticks)].Tick())
			i++
		}
	}
}
