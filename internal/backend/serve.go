package backend

import (
	"context"
	"fmt"

	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// eventCtx is the context event handlers run their API calls under
func (b *Backend) eventCtx() context.Context {
	if b.serveCtx != nil {
		return b.serveCtx
	}
	return context.Background()
}

// ServeOnce runs one full connection: login, team and bot identity
// resolution, then the event loop until it ends. It returns true when the
// loop exited cooperatively (context cancelled or Stop), false when the
// connection failed and the caller's retry policy should decide what to
// do. The disconnect callback fires exactly once on every exit path of
// the loop, whatever the cause.
func (b *Backend) ServeOnce(ctx context.Context) (bool, error) {
	if err := b.driver.Login(ctx); err != nil {
		return false, fmt.Errorf("login failed: %w", err)
	}

	team, err := b.driver.Teams().GetTeamByName(ctx, b.opts.Team)
	if err != nil {
		return false, fmt.Errorf("cannot resolve team %s: %w", b.opts.Team, err)
	}
	b.teamID = team.ID

	me, err := b.driver.Users().GetUser(ctx, "me")
	if err != nil {
		return false, fmt.Errorf("cannot resolve own user: %w", err)
	}
	b.botUser = identity.NewPerson(b.driver.Users(), me.ID, "", b.teamID)

	b.serveCtx = ctx
	defer func() {
		b.serveCtx = nil
		logger.Debug("Triggering disconnect callback")
		b.callbacks.OnDisconnected()
	}()

	loop, err := b.driver.InitWebsocket(ctx, b.teamID, me.ID, b.HandleEvent)
	if err != nil {
		return false, fmt.Errorf("websocket init failed: %w", err)
	}

	if err := loop.Run(ctx); err != nil {
		logger.WithError(err).Error("error-reading-from-event-stream")
		return false, err
	}
	if ctx.Err() != nil {
		logger.Info("Interrupt received, shutting down..")
	}
	return true, nil
}
