package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/martikaljuve/typed-scent/ecs"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML scenario file.")
	duration := flag.Duration("duration", 0, "Override the scenario run duration.")
	entityCount := flag.Int("entities", 0, "Override the initial number of entities.")
	profileMode := flag.String("profile", "", "Enable profiling: cpu or mem.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	verbose := flag.Bool("v", false, "Enable debug logging.")
	flag.Parse()

	scenario := DefaultScenario()
	if *configPath != "" {
		var err error
		scenario, err = LoadScenario(*configPath)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
	}
	if *duration > 0 {
		scenario.Workload.Duration = *duration
	}
	if *entityCount > 0 {
		scenario.Workload.Entities = *entityCount
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		log.Fatalf("Unknown profile mode %q (want cpu or mem)", *profileMode)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to build logger: %v", err)
		}
	}

	log.Println("Starting ECS stress test...")

	// 1. Set up registry, engine, and the synthetic world.
	registry := ecs.NewRegistry()
	engine := ecs.NewEngine(registry)
	engine.SetLogger(logger)

	types := defineStressTypes(registry, scenario.Workload.ComponentTypes)
	registerStressSystems(engine, types, scenario)

	// 2. Populate the engine with initial entities.
	log.Printf("Populating engine with %d entities...\n", scenario.Workload.Entities)
	entities := make([]*ecs.Entity, 0, scenario.Workload.Entities)
	for i := 0; i < scenario.Workload.Entities; i++ {
		entities = append(entities, spawnRandomEntity(engine, types, scenario.Workload.TypesPerEntity))
	}
	log.Println("Population complete.")

	var startErr error
	engine.Start(func(err error) { startErr = err })
	if startErr != nil {
		log.Fatalf("Engine start failed: %v", startErr)
	}

	// 3. Run the simulation loop.
	report := NewReport(scenario)
	report.GCPauseMetrics = *gcPauseMetrics
	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running simulation for %s...\n", scenario.Workload.Duration)
	ctx, cancel := context.WithTimeout(context.Background(), scenario.Workload.Duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			churn(engine, entities, types, scenario)

			updateStart := time.Now()
			engine.Update(float64(deltaTime) / float64(time.Second))
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
		}
	}

	report.TotalUpdates = int64(engine.Ticks())
	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Simulation finished.")

	// 4. Generate report to console.
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}

// defineStressTypes registers count synthetic component types, each with a
// small numeric payload.
func defineStressTypes(registry *ecs.Registry, count int) []*ecs.ComponentType {
	types := make([]*ecs.ComponentType, 0, count)
	for i := 0; i < count; i++ {
		ct, err := registry.Define("stress_"+strconv.Itoa(i), "a", "b", "c")
		if err != nil {
			log.Fatalf("Failed to define component type: %v", err)
		}
		types = append(types, ct)
	}
	return types
}

// registerStressSystems wires one node-iterating system per scenario system
// slot, plus a listener draining the synthetic churn action.
func registerStressSystems(engine *ecs.Engine, types []*ecs.ComponentType, scenario Scenario) {
	for i := 0; i < scenario.Workload.Systems; i++ {
		// Each system watches a signature of two neighboring types.
		a := types[i%len(types)]
		b := types[(i+1)%len(types)]

		node, err := engine.GetNode(a, b)
		if err != nil {
			log.Fatalf("Failed to build node: %v", err)
		}

		engine.AddSystemFunc(func(dt float64) {
			node.Each(func(e *ecs.Entity) {
				c := e.Get(a)
				c.Set("a", c.Float("a")+dt)
			})
		})
	}

	engine.OnAction("churn", func(a *ecs.Action) {
		// Payload is the tick the trigger came from; nothing to do but
		// touch it so dispatch cost is realistic.
		_ = a.Data()
	})
}

func spawnRandomEntity(engine *ecs.Engine, types []*ecs.ComponentType, maxTypes int) *ecs.Entity {
	n := rand.Intn(maxTypes) + 1
	specs := make([]any, 0, n)
	seen := make(map[int]bool, n)
	for len(specs) < n {
		idx := rand.Intn(len(types))
		if seen[idx] {
			continue
		}
		seen[idx] = true
		specs = append(specs, types[idx])
	}

	e, err := engine.BuildEntity(specs...)
	if err != nil {
		log.Fatalf("Failed to build entity: %v", err)
	}
	return e
}

// churn mutates random entities and triggers actions so every tick exercises
// node reconciliation and deferred dispatch.
func churn(engine *ecs.Engine, entities []*ecs.Entity, types []*ecs.ComponentType, scenario Scenario) {
	for i := 0; i < scenario.Churn.MutationsPerTick; i++ {
		e := entities[rand.Intn(len(entities))]
		ct := types[rand.Intn(len(types))]
		if e.Has(ct) {
			e.Remove(ct)
		} else {
			c, err := engine.Registry().Acquire(ct.ID())
			if err != nil {
				log.Fatalf("Failed to acquire component: %v", err)
			}
			e.Add(c)
		}
	}
	for i := 0; i < scenario.Churn.ActionsPerTick; i++ {
		engine.TriggerAction("churn", engine.Ticks(), nil)
	}
}
