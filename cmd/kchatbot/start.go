package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Infomaniak/err-backend-kchat/internal/backend"
	"github.com/Infomaniak/err-backend-kchat/internal/config"
	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

var (
	configFile string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the kChat backend",
		Long:  "Connect to the kChat server and serve the event stream until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			if err := logger.InitLogger(logger.Config{
				Level:        cfg.Logging.Level,
				File:         cfg.Logging.File,
				MaxSize:      cfg.Logging.MaxSize,
				MaxBackups:   cfg.Logging.MaxBackups,
				MaxAge:       cfg.Logging.MaxAge,
				Compress:     cfg.Logging.Compress,
				EnableStdout: cfg.Logging.EnableStdout,
			}); err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}

			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"server":      cfg.Identity.Server,
				"team":        cfg.Identity.Team,
			}).Info("starting-kchat-backend")

			timeout, err := cfg.WebsocketTimeout()
			if err != nil {
				log.Fatalf("Invalid config: %v", err)
			}

			client := driver.NewClient(driver.Options{
				Scheme:       cfg.Identity.Scheme,
				URL:          cfg.Identity.Server,
				Port:         cfg.Identity.Port,
				WebsocketURL: cfg.Identity.WebsocketURL,
				Token:        cfg.Identity.Token,
				LoginID:      cfg.Identity.Login,
				Password:     cfg.Identity.Password,
				MFAToken:     cfg.Identity.MFAToken,
				Insecure:     cfg.Identity.Insecure,
				Timeout:      timeout,
			})

			b := backend.New(client, backend.Options{
				Team:             cfg.Identity.Team,
				MessageSizeLimit: cfg.Message.SizeLimit,
				MessageHardLimit: cfg.Message.HardLimit,
			}, &logCallbacks{})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigs
				logger.Infof("Received signal %v, shutting down...", sig)
				cancel()
			}()

			// Reconnection policy lives here, outside the backend: the
			// connection loop itself never retries.
			for {
				clean, err := b.ServeOnce(ctx)
				if clean {
					break
				}
				if err != nil {
					logger.WithError(err).Error("connection-loop-failed")
				}
				select {
				case <-ctx.Done():
				case <-time.After(constants.DefaultReconnectDelay):
					continue
				}
				break
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.DefaultHTTPTimeout)
			defer shutdownCancel()
			if err := b.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("shutdown-failed")
			}
			logger.Info("kchat-backend-stopped")
		},
	}
)

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
}

// logCallbacks is the default framework binding: it logs every event the
// backend produces. A real bot framework replaces it with its own
// dispatch.
type logCallbacks struct{}

func (c *logCallbacks) OnMessage(msg *backend.Message) {
	logger.WithFields(logrus.Fields{
		"from":   msg.From.String(),
		"to":     msg.To.String(),
		"direct": msg.IsDirect(),
	}).Info("message-received")
}

func (c *logCallbacks) OnMention(msg *backend.Message, mentions []identity.Identifier) {
	logger.WithField("mentions", len(mentions)).Info("mention-received")
}

func (c *logCallbacks) OnPresence(id identity.Identifier, status backend.PresenceStatus) {
	logger.WithFields(logrus.Fields{
		"identifier": id.String(),
		"status":     string(status),
	}).Debug("presence-changed")
}

func (c *logCallbacks) OnConnected() {
	logger.Info("connected-to-kchat")
}

func (c *logCallbacks) OnDisconnected() {
	logger.Info("disconnected-from-kchat")
}

func (c *logCallbacks) OnRoomJoined(room *identity.Room) {
	logger.WithField("room", room.Name()).Info("room-joined")
}

func (c *logCallbacks) OnRoomLeft(room *identity.Room) {
	logger.WithField("room", room.Name()).Info("room-left")
}
