package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/syncx"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	saltKey     = "notekeeper.salt"
	verifierKey = "notekeeper.verifier"

	pullBatchSize = 100
)

func (a *App) authorIdentity() (string, string) {
	if a.config.UserID != "" {
		return a.config.UserID, a.config.UserID
	}
	return "local", "local"
}

func (a *App) requireOpen() bool {
	if a.resourceID == "" {
		fmt.Println("No note open; use: open <name>")
		return false
	}
	return true
}

func (a *App) requireRemote() bool {
	if a.coordinator == nil {
		fmt.Println("No remote configured; start with -r <dsn>")
		return false
	}
	return true
}

func (a *App) requireKey() bool {
	if a.masterKey == nil {
		fmt.Println("Vault locked; run 'unlock' first")
		return false
	}
	return true
}

func (a *App) open(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: open <name>")
		return
	}
	a.resourceID = args[0]
	a.content = ""
	if latest, err := a.store.GetLatestVersion(a.resourceID); err == nil {
		a.content = latest.Content
		fmt.Printf("Opened %q at version from %s\n", a.resourceID, latest.Timestamp.Format(time.RFC3339))
	} else {
		fmt.Printf("Opened new note %q\n", a.resourceID)
	}
}

func (a *App) edit() {
	if !a.requireOpen() {
		return
	}
	a.content = a.readMultiline("Enter note text")
	authorID, authorName := a.authorIdentity()
	a.scheduler.ScheduleAutoSave(a.resourceID, a.content, authorID, authorName)
	fmt.Println("Buffered; a checkpoint will be created automatically, or run 'save' now")
}

func (a *App) save(ctx context.Context) {
	if !a.requireOpen() {
		return
	}
	authorID, authorName := a.authorIdentity()
	v := a.store.SaveVersion(ctx, a.resourceID, a.content, authorID, authorName, "")
	fmt.Printf("Saved version %s: %s\n", v.ID, v.ChangeSummary)
}

func (a *App) history() {
	if !a.requireOpen() {
		return
	}
	list := a.store.GetVersions(a.resourceID)
	if len(list) == 0 {
		fmt.Println("No versions yet")
		return
	}
	for _, v := range list {
		fmt.Printf("%s  %s  %-10s  %s\n",
			v.ID, v.Timestamp.Format("2006-01-02 15:04:05"), v.AuthorName, v.ChangeSummary)
	}
}

func (a *App) show(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: show <version-id>")
		return
	}
	v, err := a.store.GetVersion(args[0])
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Println("Version not found")
		return
	}
	fmt.Printf("--- %s by %s (%s)\n%s\n", v.Timestamp.Format(time.RFC3339), v.AuthorName, v.ChangeSummary, v.Content)
}

func (a *App) diffCurrent(args []string) {
	if !a.requireOpen() {
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: diff <version-id>")
		return
	}
	r, err := a.store.CompareWithCurrent(args[0], a.content)
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Println("Version not found")
		return
	}
	fmt.Println(r.Summary)
	for _, l := range r.Added {
		fmt.Printf("+ %s\n", l)
	}
	for _, l := range r.Removed {
		fmt.Printf("- %s\n", l)
	}
}

func (a *App) restore(args []string) {
	if !a.requireOpen() {
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: restore <version-id>")
		return
	}
	v, err := a.store.RestoreVersion(args[0])
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Println("Version not found")
		return
	}
	a.content = v.Content
	fmt.Printf("Restored content of version %s (remember to 'save')\n", v.ID)
}

func (a *App) deleteVersion(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: rmver <version-id>")
		return
	}
	if a.store.DeleteVersion(ctx, args[0]) {
		fmt.Println("Deleted")
	} else {
		fmt.Println("Version not found")
	}
}

func (a *App) purge(ctx context.Context) {
	if !a.requireOpen() {
		return
	}
	if a.store.DeleteResourceVersions(ctx, a.resourceID) {
		fmt.Printf("Removed all versions of %q\n", a.resourceID)
	} else {
		fmt.Println("No versions to remove")
	}
}

func (a *App) unlock(ctx context.Context) {
	pass, err := readPassword("Passphrase: ")
	if err != nil {
		fmt.Printf("Error reading passphrase: %v\n", err)
		return
	}
	defer common.Wipe(pass)

	salt, err := a.loadOrCreateSalt(ctx)
	if err != nil {
		fmt.Printf("Error preparing salt: %v\n", err)
		return
	}

	key := cryptox.DeriveMasterKey(pass, salt)
	verifier := hex.EncodeToString(cryptox.MakeVerifier(key))

	stored, ok, err := a.kv.Get(ctx, verifierKey)
	if err != nil {
		fmt.Printf("Error reading verifier: %v\n", err)
		return
	}
	if !ok {
		if err := a.kv.Set(ctx, verifierKey, verifier); err != nil {
			fmt.Printf("Error storing verifier: %v\n", err)
			return
		}
	} else if stored != verifier {
		fmt.Println("Wrong passphrase")
		return
	}

	a.masterKey = key
	fmt.Println("Unlocked")
}

func (a *App) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	stored, ok, err := a.kv.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if ok {
		return hex.DecodeString(stored)
	}
	salt := common.GenerateRandByteArray(16)
	if err := a.kv.Set(ctx, saltKey, hex.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

func (a *App) backoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
}

func (a *App) push(ctx context.Context) {
	if !a.requireOpen() || !a.requireRemote() || !a.requireKey() {
		return
	}

	payload, err := cryptox.Encrypt([]byte(a.content), a.masterKey)
	if err != nil {
		fmt.Printf("Encryption error: %v\n", err)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Encryption error: %v\n", err)
		return
	}

	var latest int64
	err = retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		var err error
		latest, err = a.coordinator.GetLatestVersion(ctx, a.config.UserID)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Sync error: %v\n", err)
		return
	}

	op := &syncx.Operation{
		ID:               uuid.NewString(),
		UserID:           a.config.UserID,
		SessionID:        deviceID(a.config),
		Type:             syncx.OpUpdate,
		EntityType:       "note",
		EntityID:         a.resourceID,
		EncryptedPayload: string(raw),
		Timestamp:        time.Now(),
		Version:          latest + 1,
	}

	results := a.coordinator.PushOperations(ctx, []*syncx.Operation{op})
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			fmt.Printf("Operation %s failed: %s\n", r.OperationID, r.Error)
		}
	}
	fmt.Printf("%d of %d changes synced\n", ok, len(results))
}

func (a *App) pull(ctx context.Context) {
	if !a.requireRemote() || !a.requireKey() {
		return
	}

	var since int64
	if m, err := a.coordinator.GetSyncMetadata(ctx, a.config.UserID); err == nil {
		since = m.LastSyncVersion
	}

	var ops []*syncx.Operation
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		var err error
		ops, err = a.coordinator.PullChanges(ctx, a.config.UserID, since, pullBatchSize)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Sync error: %v\n", err)
		return
	}

	if len(ops) == 0 {
		fmt.Println("Already up to date")
		return
	}

	plain := a.coordinator.DecryptPayloads(ctx, ops, a.masterKey)
	applied := 0
	for _, op := range ops {
		switch op.Type {
		case syncx.OpDelete:
			a.store.DeleteResourceVersions(ctx, op.EntityID)
			applied++
		default:
			content, ok := plain[op.EntityID]
			if !ok {
				continue
			}
			a.store.SaveVersion(ctx, op.EntityID, string(content), "remote", "remote", "Synced from remote")
			if op.EntityID == a.resourceID {
				a.content = string(content)
			}
			applied++
		}
	}
	fmt.Printf("%d of %d changes applied\n", applied, len(ops))
}

func (a *App) watch(ctx context.Context) {
	if !a.requireRemote() {
		return
	}
	if a.unwatch != nil {
		fmt.Println("Already watching")
		return
	}

	unsub, err := a.coordinator.SubscribeToChanges(ctx, a.config.UserID, func(op *syncx.Operation) {
		fmt.Printf("\n[remote] %s %s v%d\n", op.Type, op.EntityID, op.Version)
	})
	if err != nil {
		fmt.Printf("Subscribe error: %v\n", err)
		return
	}
	a.unwatch = unsub
	fmt.Println("Watching for remote changes")
}

func (a *App) status(ctx context.Context) {
	fmt.Printf("Local versions: %d\n", a.store.Count())
	if a.coordinator == nil {
		fmt.Println("Remote: not configured")
		return
	}

	m, err := a.coordinator.GetSyncMetadata(ctx, a.config.UserID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fmt.Println("Remote: never synced")
	case err != nil:
		fmt.Printf("Remote: metadata error: %v\n", err)
		return
	default:
		fmt.Printf("Remote: %s, cursor %d, last synced %s\n",
			m.SyncStatus, m.LastSyncVersion, m.LastSyncedAt.Format(time.RFC3339))
		if pending, err := a.coordinator.GetPendingCount(ctx, a.config.UserID, m.LastSyncVersion); err == nil {
			fmt.Printf("Pending remote changes: %d\n", pending)
		}
	}

	if latest, err := a.coordinator.GetLatestVersion(ctx, a.config.UserID); err == nil {
		fmt.Printf("Latest remote version: %d\n", latest)
	}
}
