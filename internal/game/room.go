// internal/game/room.go
package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
)

// RoomState is the lifecycle of a single game within a room.
type RoomState int

const (
	StateLobby RoomState = iota
	StateInProgress
	StateFinished
)

func (s RoomState) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateInProgress:
		return "in_progress"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

const (
	maxNameLength = 32
	maxChatLength = 500
	maxChatLog    = 200 // messages kept per room

	// DefaultDrawInterval is how often a number is drawn in a running game.
	DefaultDrawInterval = 3 * time.Second
)

// RoomSettings tune a room's game loop.
type RoomSettings struct {
	DrawInterval time.Duration
	// EndOnBingo finishes the game as soon as any player reaches the mode's top
	// tier instead of drawing until the pool is empty.
	EndOnBingo bool
}

// Player is a participant of exactly one room.
type Player struct {
	ID                 uuid.UUID
	UserID             uuid.UUID // uuid.Nil for guests
	Name               string
	Card               *Card
	Score              int
	CompletedLineCount int
	JoinedAt           time.Time

	conn Conn
}

// Authenticated reports whether the player is backed by a registered user.
func (p *Player) Authenticated() bool {
	return p.UserID != uuid.Nil
}

func (p *Player) view(isHost bool) PlayerView {
	return PlayerView{
		ID:                 p.ID,
		Name:               p.Name,
		IsHost:             isHost,
		Score:              p.Score,
		CompletedLineCount: p.CompletedLineCount,
	}
}

func (p *Player) selfView(isHost bool) SelfView {
	return SelfView{PlayerView: p.view(isHost), Card: p.Card.Clone()}
}

type achievement struct {
	playerID uuid.UUID
	tier     Tier
}

// Room holds one game's full state. Every exported method takes the room lock,
// so operations on the same room are serialized and different rooms never
// contend.
type Room struct {
	ID        uuid.UUID
	Name      string
	Mode      GameMode
	Settings  RoomSettings
	CreatedAt time.Time

	mu            sync.Mutex
	players       []*Player // players[0] is the host
	state         RoomState
	drawn         []int
	pool          []int
	currentNumber int
	winners       []uuid.UUID
	awarded       map[achievement]bool
	chatLog       []ChatMessage
	gameID        uuid.UUID
	gameStartedAt time.Time
	scheduler     *drawScheduler
	closed        bool
	actionIndex   int
	rng           *rand.Rand

	// OnEmpty is invoked, with the room lock held, when the last player leaves.
	// The registry uses it to delete the room synchronously.
	OnEmpty func(roomID uuid.UUID)
	// OnListingChange is invoked in its own goroutine whenever the room's entry
	// in the joinable-room listing changes.
	OnListingChange func()

	levels  LevelService
	results ResultRecorder
	actions ActionPublisher
	logger  *logrus.Entry
}

// NewRoom builds an empty room in the lobby state.
func NewRoom(name string, mode GameMode, settings RoomSettings, deps Deps) *Room {
	id, _ := uuid.NewV7()
	if settings.DrawInterval <= 0 {
		settings.DrawInterval = DefaultDrawInterval
	}
	return &Room{
		ID:        id,
		Name:      name,
		Mode:      mode,
		Settings:  settings,
		CreatedAt: time.Now(),
		state:     StateLobby,
		awarded:   make(map[achievement]bool),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		levels:    deps.Levels,
		results:   deps.Results,
		actions:   deps.Actions,
		logger:    deps.logger().WithFields(logrus.Fields{"room_id": id, "mode": mode.Name()}),
	}
}

// validateName trims a display name and checks its length.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Join adds a player with a freshly generated card. joinEvent is sent privately
// to the new player (roomCreated or joinedRoom) before anything else. The caller
// is responsible for refreshing the room listing once the player is bound.
func (r *Room) Join(playerName string, userID uuid.UUID, conn Conn, joinEvent EventType) (*Player, error) {
	name, err := validateName(playerName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.state != StateLobby {
		return nil, ErrGameAlreadyStarted
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}

	p := &Player{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Card:     r.Mode.NewCard(r.rng),
		JoinedAt: time.Now(),
		conn:     conn,
	}
	r.players = append(r.players, p)
	isHost := len(r.players) == 1

	r.sendTo(p, Event{Type: joinEvent, Payload: RoomJoinPayload{
		Room:   r.viewLocked(),
		Player: p.selfView(isHost),
	}})
	if joinEvent != EventRoomCreated {
		r.broadcast(Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{
			Player:       p.view(isHost),
			TotalPlayers: len(r.players),
		}})
	}
	r.logAction(p.ID, "player_join", map[string]interface{}{"name": name, "authenticated": p.Authenticated()})
	r.logger.WithField("player_id", p.ID).Infof("player %q joined (%d total)", name, len(r.players))
	return p, nil
}

// Start begins a new game. Only the host may start, and not while a game is
// running. Any previous game's draws, winners and marks are cleared.
func (r *Room) Start(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.state == StateInProgress {
		return ErrAlreadyStarted
	}
	if len(r.players) == 0 || r.players[0].ID != playerID {
		if r.playerByID(playerID) == nil {
			return ErrPlayerNotFound
		}
		return ErrNotHost
	}

	r.drawn = nil
	r.currentNumber = 0
	r.winners = nil
	r.awarded = make(map[achievement]bool)
	r.pool = r.rng.Perm(r.Mode.MaxNumber())
	for i := range r.pool {
		r.pool[i]++
	}
	for _, p := range r.players {
		p.Card.ClearMarks()
		p.Score = 0
		p.CompletedLineCount = 0
	}
	r.gameID, _ = uuid.NewV7()
	r.gameStartedAt = time.Now()
	r.state = StateInProgress

	r.broadcast(Event{Type: EventGameStarted, Payload: GameStartedPayload{
		PlayerCount: len(r.players),
		StartedAt:   r.gameStartedAt,
	}})
	r.logAction(playerID, "game_start", map[string]interface{}{"players": len(r.players)})
	r.logger.WithField("game_id", r.gameID).Infof("game started with %d players", len(r.players))

	r.scheduler = startDrawScheduler(r, r.Settings.DrawInterval)
	r.listingChanged()
	return nil
}

// Mark toggles a cell on the player's card, re-evaluates the card and credits
// any tier not yet credited to the player in this game.
func (r *Room) Mark(playerID uuid.UUID, row, col int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	p := r.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.Card.InBounds(row, col) {
		return ErrOutOfRange
	}

	marked := p.Card.Toggle(row, col)
	r.sendTo(p, Event{Type: EventCellMarked, Payload: CellMarkedPayload{Row: row, Col: col, Marked: marked}})
	r.logAction(p.ID, "mark_cell", map[string]interface{}{"row": row, "col": col, "marked": marked})

	res := r.Mode.Evaluate(p.Card)
	p.CompletedLineCount = res.Lines
	if r.state == StateInProgress && res.Won() {
		r.creditLocked(p, res)
	}

	r.broadcast(Event{Type: EventPlayerUpdated, Payload: PlayerUpdatedPayload{
		PlayerID:           p.ID,
		Score:              p.Score,
		CompletedLineCount: p.CompletedLineCount,
	}})

	if r.Settings.EndOnBingo && r.state == StateInProgress && res.Tier == r.Mode.TopTier() {
		r.finishLocked("top tier reached")
	}
	return nil
}

// creditLocked records a win tier once per player per game.
func (r *Room) creditLocked(p *Player, res WinResult) {
	key := achievement{playerID: p.ID, tier: res.Tier}
	if r.awarded[key] {
		return
	}
	r.awarded[key] = true

	first := true
	for _, w := range r.winners {
		if w == p.ID {
			first = false
			break
		}
	}
	if first {
		r.winners = append(r.winners, p.ID)
	}

	amount := res.Tier.Experience()
	p.Score += amount

	r.broadcast(Event{Type: EventWinAchieved, Payload: WinAchievedPayload{
		PlayerName: p.Name,
		Tier:       res.Tier,
		Lines:      res.Lines,
		Pattern:    res.Pattern,
	}})
	r.logAction(p.ID, "win_achieved", map[string]interface{}{"tier": string(res.Tier), "lines": res.Lines})
	r.logger.WithField("player_id", p.ID).Infof("player %q achieved %q", p.Name, res.Tier)

	if p.Authenticated() && r.levels != nil {
		go r.awardExperience(p.UserID, p.conn, res.Tier, amount)
	}
}

// awardExperience runs outside the room lock; failures are logged only.
func (r *Room) awardExperience(userID uuid.UUID, conn Conn, tier Tier, amount int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := r.levels.AwardExperience(ctx, userID, string(tier), amount)
	if err != nil {
		r.logger.WithField("user_id", userID).Errorf("failed to award %d xp for %q: %v", amount, tier, err)
		return
	}
	if conn != nil {
		conn.Send(Event{Type: EventExperienceAwarded, Payload: ExperienceAwardedPayload{
			Tier:       tier,
			Amount:     amount,
			Experience: info.Experience,
			Level:      info.Level,
			LeveledUp:  info.LeveledUp,
		}})
	}
}

// Chat appends a message to the room's log and broadcasts it. playerRef may be
// either a player id or a display name.
func (r *Room) Chat(playerRef, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		text = string([]rune(text)[:maxChatLength])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ChatMessage{}, ErrRoomNotFound
	}
	p := r.resolvePlayer(playerRef)
	if p == nil {
		return ChatMessage{}, ErrPlayerNotFound
	}

	msg := ChatMessage{
		ID:         uuid.New(),
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Text:       text,
		Timestamp:  time.Now(),
	}
	r.chatLog = append(r.chatLog, msg)
	if n := len(r.chatLog); n > maxChatLog {
		r.chatLog = append([]ChatMessage(nil), r.chatLog[n-maxChatLog:]...)
	}
	r.broadcast(Event{Type: EventNewChatMessage, Payload: msg})
	r.logAction(p.ID, "chat", map[string]interface{}{"text": text})
	return msg, nil
}

// RemovePlayer drops a player from the roster. When the roster becomes empty
// the room is closed, its scheduler cancelled and OnEmpty invoked. It returns
// the number of players left.
func (r *Room) RemovePlayer(playerID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrRoomNotFound
	}
	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return len(r.players), ErrPlayerNotFound
	}

	left := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	remaining := len(r.players)

	r.broadcast(Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{
		PlayerName:   left.Name,
		TotalPlayers: remaining,
	}})
	r.logAction(left.ID, "player_leave", map[string]interface{}{"remaining": remaining})
	r.logger.WithField("player_id", left.ID).Infof("player %q left (%d remaining)", left.Name, remaining)

	if remaining == 0 {
		r.closeLocked()
		if r.OnEmpty != nil {
			r.OnEmpty(r.ID)
		}
		return 0, nil
	}
	r.listingChanged()
	return remaining, nil
}

// Close stops the room regardless of its roster, used on server shutdown.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
	r.logger.Info("room closed")
}

// drawTick is one step of the draw scheduler. It returns false once the
// scheduler should stop.
func (r *Room) drawTick(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil || r.closed || r.state != StateInProgress {
		return false
	}
	if len(r.pool) == 0 {
		r.finishLocked("draw pool exhausted")
		return false
	}

	n := r.pool[len(r.pool)-1]
	r.pool = r.pool[:len(r.pool)-1]
	r.currentNumber = n
	r.drawn = append(r.drawn, n)

	r.broadcast(Event{Type: EventNumberDrawn, Payload: NumberDrawnPayload{
		Number:       n,
		DrawnNumbers: append([]int(nil), r.drawn...),
		TotalDrawn:   len(r.drawn),
	}})
	r.logAction(uuid.Nil, "number_drawn", map[string]interface{}{"number": n, "total": len(r.drawn)})
	return true
}

// finishLocked moves the game to Finished, stops drawing and hands the result
// to the statistics store.
func (r *Room) finishLocked(reason string) {
	if r.state != StateInProgress {
		return
	}
	r.state = StateFinished
	if r.scheduler != nil {
		r.scheduler.Stop()
	}

	result := r.resultLocked()
	winnerNames := make([]string, 0, len(r.winners))
	for _, id := range r.winners {
		if p := r.playerByID(id); p != nil {
			winnerNames = append(winnerNames, p.Name)
		}
	}

	r.broadcast(Event{Type: EventGameFinished, Payload: GameFinishedPayload{
		Winners:    winnerNames,
		Duration:   result.Duration,
		TotalDrawn: result.TotalDrawn,
	}})
	r.logAction(uuid.Nil, "game_finished", map[string]interface{}{"reason": reason, "winners": len(r.winners)})
	r.logger.WithField("game_id", r.gameID).Infof("game finished: %s", reason)

	if r.results != nil {
		go r.recordResult(result)
	}
	r.listingChanged()
}

// abortGame finishes the game driven by sched after its goroutine failed, so the
// room can be started again. The lock taken by the failed tick has already been
// released while unwinding.
func (r *Room) abortGame(sched *drawScheduler, reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("panic while finishing aborted game: %v", rec)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != sched {
		return
	}
	r.finishLocked(reason)
}

func (r *Room) resultLocked() models.GameResult {
	res := models.GameResult{
		RoomID:     r.ID,
		GameID:     r.gameID,
		Mode:       r.Mode.Name(),
		StartedAt:  r.gameStartedAt,
		Duration:   time.Since(r.gameStartedAt),
		TotalDrawn: len(r.drawn),
	}
	if len(r.winners) > 0 {
		res.WinnerID = r.winners[0]
	}
	for _, p := range r.players {
		pr := models.PlayerResult{
			PlayerID:       p.ID,
			UserID:         p.UserID,
			Name:           p.Name,
			Score:          p.Score,
			CompletedLines: p.CompletedLineCount,
		}
		for _, tier := range tierOrder {
			if r.awarded[achievement{playerID: p.ID, tier: tier}] {
				pr.Tiers = append(pr.Tiers, string(tier))
			}
		}
		res.Players = append(res.Players, pr)
	}
	return res
}

func (r *Room) recordResult(result models.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log := r.logger.WithField("game_id", result.GameID)
	if err := r.results.RecordGameResult(ctx, result); err != nil {
		log.Errorf("failed to record game result: %v", err)
		return
	}
	if w, ok := result.Winner(); ok {
		log.Debugf("game result recorded, winner %q", w.Name)
	}
}

// Snapshot returns the public view of the room.
func (r *Room) Snapshot() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Summary returns the room's listing entry and whether new players may join.
func (r *Room) Summary() (RoomSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		Mode:        r.Mode.Name(),
		PlayerCount: len(r.players),
		CreatedAt:   r.CreatedAt,
	}, !r.closed && r.state == StateLobby
}

// State returns the current lifecycle state.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PlayerCount returns the roster size.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Player returns a copy of the player with the given id.
func (r *Room) Player(playerID uuid.UUID) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.playerByID(playerID)
	if p == nil {
		return Player{}, false
	}
	cp := *p
	cp.Card = p.Card.Clone()
	return cp, true
}

func (r *Room) viewLocked() RoomView {
	v := RoomView{
		ID:            r.ID,
		Name:          r.Name,
		Mode:          r.Mode.Name(),
		Players:       make([]PlayerView, 0, len(r.players)),
		DrawnNumbers:  append([]int{}, r.drawn...),
		CurrentNumber: r.currentNumber,
		Started:       r.state != StateLobby,
		Finished:      r.state == StateFinished,
		Winners:       append([]uuid.UUID{}, r.winners...),
		ChatLog:       append([]ChatMessage{}, r.chatLog...),
		CreatedAt:     r.CreatedAt,
	}
	for i, p := range r.players {
		v.Players = append(v.Players, p.view(i == 0))
	}
	if !r.gameStartedAt.IsZero() {
		t := r.gameStartedAt
		v.GameStartedAt = &t
	}
	return v
}

func (r *Room) playerByID(id uuid.UUID) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// resolvePlayer accepts a player id or, failing that, a display name.
func (r *Room) resolvePlayer(ref string) *Player {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		if p := r.playerByID(id); p != nil {
			return p
		}
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, ref) {
			return p
		}
	}
	return nil
}

// broadcast enqueues ev on every player's connection. Called with the lock held
// so events of one room reach each connection in order.
func (r *Room) broadcast(ev Event) {
	for _, p := range r.players {
		if p.conn != nil {
			p.conn.Send(ev)
		}
	}
}

func (r *Room) sendTo(p *Player, ev Event) {
	if p.conn != nil {
		p.conn.Send(ev)
	}
}

func (r *Room) listingChanged() {
	if r.OnListingChange != nil {
		go r.OnListingChange()
	}
}

// logAction ships an action record to the historian queue asynchronously.
// Assumes lock is held.
func (r *Room) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := models.RoomAction{
		RoomID:        r.ID,
		GameID:        r.gameID,
		ActionIndex:   r.actionIndex,
		ActorPlayerID: actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec models.RoomAction) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.actions.PublishRoomAction(ctx, rec); err != nil {
			r.logger.Warnf("failed to publish action %d (%s): %v", rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}
