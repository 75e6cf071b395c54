package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/configure"
	"github.com/troydota/api.opinion.komodohype.dev/metrics"
	"github.com/troydota/api.opinion.komodohype.dev/mongo"
	"github.com/troydota/api.opinion.komodohype.dev/redis"
	"github.com/troydota/api.opinion.komodohype.dev/server"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql/resolvers"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"github.com/troydota/api.opinion.komodohype.dev/store/memory"
)

func checkErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	switch driver := configure.Config.GetString("store_driver"); driver {
	case "memory":
		log.Warn("using the in-memory store, nothing will survive a restart")
		return memory.New(), nil
	case "mongo", "":
		return mongo.Connect(ctx, configure.Config.GetString("mongo_uri"), configure.Config.GetString("mongo_db"))
	default:
		log.Fatalf("unknown store driver %q", driver)
	}
	return nil, nil
}

func main() {
	configure.Load()

	log.Infoln("Application Starting...")

	configCode := configure.Config.GetInt("exit_code")
	if configCode > 125 || configCode < 0 {
		log.Warnf("Invalid exit code specified in config (%v), using 0 as new exit code.", configCode)
		configCode = 0
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := openStore(ctx)
	checkErr(err)
	rc, err := redis.Connect(ctx, configure.Config.GetString("redis_uri"))
	checkErr(err)
	cancel()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	svc := services.New(st, rc,
		services.WithCacheSemantics(redis.ErrNil, redis.KeepTTL),
		services.WithPublisher(rc),
		services.WithCandidateLimit(configure.Config.GetInt("candidate_limit")),
		services.WithCandidateTTL(time.Duration(configure.Config.GetInt("candidate_ttl"))*time.Second),
	)

	pubsub := rc.Subscribe(context.Background())
	schema, err := gql.Schema(resolvers.New(svc, pubsub))
	checkErr(err)

	authn := auth.New(configure.Config.GetString("user_jwt_secret"), configure.Config.GetString("admin_jwt_secret"))
	s, err := server.NewServer(
		server.New(schema, authn),
		configure.Config.GetString("listener_network"),
		configure.Config.GetString("listener_address"),
	)
	checkErr(err)

	go func() {
		sig := <-c
		log.Infof("sig=%v, gracefully shutting down...", sig)
		start := time.Now().UnixNano()

		wg := sync.WaitGroup{}
		wg.Add(1)

		go func() {
			defer wg.Done()
			if err := s.Shutdown(); err != nil {
				log.Errorf("server, shutdown=%v", err)
			}
			if err := pubsub.Close(); err != nil {
				log.Errorf("redis, pubsub=%v", err)
			}
			if err := rc.Close(); err != nil {
				log.Errorf("redis, shutdown=%v", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := st.Close(ctx); err != nil {
				log.Errorf("store, shutdown=%v", err)
			}
		}()

		wg.Wait()

		log.Infof("Shutdown took, %.2fms", float64(time.Now().UnixNano()-start)/10e5)
		os.Exit(configCode)
	}()

	log.Infoln("Application Started.")

	select {}
}
