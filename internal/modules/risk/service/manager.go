package service

import (
	"context"
	"sync"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	portfolio "multisignal_bot/internal/modules/portfolio/service"
	"multisignal_bot/internal/notify"
	"multisignal_bot/pkg/logger"
)

const eps = 1e-9

// OrderGateway: то, что менеджеру нужно от шлюза исполнения.
type OrderGateway interface {
	Submit(ctx context.Context, o models.Order) (models.Fill, error)
	AwaitFill(ctx context.Context, fill models.Fill) (models.Fill, error)
	Cancel(ctx context.Context, orderID string) bool
}

// Manager: риск-гейты и машина состояний пары Idle -> PendingOpen -> Open -> Closing -> Idle.
// Чтение-решение-запись по одной паре идёт под её собственным мьютексом.
type Manager struct {
	cfg      config.RiskConfig
	exec     config.ExecutionConfig
	allowed  map[string]bool
	book     *portfolio.Portfolio
	gateway  OrderGateway
	market   models.MarketDataCapability
	journal  models.TradeLog
	notifier notify.Notifier
	now      func() time.Time

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	states    map[string]models.PairState
	dailyLoss float64
	halted    bool
}

func NewManager(
	cfg config.RiskConfig,
	exec config.ExecutionConfig,
	trading config.TradingConfig,
	book *portfolio.Portfolio,
	gateway OrderGateway,
	market models.MarketDataCapability,
	journal models.TradeLog,
	notifier notify.Notifier,
) *Manager {
	allowed := make(map[string]bool, len(trading.Pairs))
	for _, p := range trading.Pairs {
		allowed[p] = true
	}
	if notifier == nil {
		notifier = notify.NewStdout()
	}
	return &Manager{
		cfg:      cfg,
		exec:     exec,
		allowed:  allowed,
		book:     book,
		gateway:  gateway,
		market:   market,
		journal:  journal,
		notifier: notifier,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
		states:   make(map[string]models.PairState),
	}
}

func (m *Manager) pairLock(pair string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[pair]
	if !ok {
		l = &sync.Mutex{}
		m.locks[pair] = l
	}
	return l
}

func (m *Manager) State(pair string) models.PairState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[pair]
}

var transitions = map[models.PairState][]models.PairState{
	models.StateIdle:        {models.StatePendingOpen},
	models.StatePendingOpen: {models.StateOpen, models.StateIdle},
	models.StateOpen:        {models.StateClosing},
	models.StateClosing:     {models.StateIdle, models.StateOpen},
}

func (m *Manager) transition(pair string, to models.PairState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.states[pair]
	for _, next := range transitions[from] {
		if next == to {
			m.states[pair] = to
			return nil
		}
	}
	return models.Errorf(models.KindValidation, "Manager.transition", "%s: %s -> %s is not allowed", pair, from, to)
}

// SizePosition = available * riskPerTrade / (entry * stopLoss). 0 если знаменатель не положителен.
func (m *Manager) SizePosition(entryPrice float64) float64 {
	denom := entryPrice * m.cfg.StopLoss
	avail := m.book.AvailableBalance()
	if !helper.Finite(denom) || denom <= 0 || avail <= 0 {
		return 0
	}
	return avail * m.cfg.RiskPerTrade / denom
}

// ValidateTrade: предторговый гейт для позиции риск-размера.
func (m *Manager) ValidateTrade(pair string, entryPrice float64) bool {
	return m.validate(pair, entryPrice, m.SizePosition(entryPrice))
}

// validate: notional позиции (units * entry) в процентах от доступного баланса
// не должен превышать riskPerTrade * 100. Не зависит от портфельного гейта.
func (m *Manager) validate(pair string, entryPrice, units float64) bool {
	if !m.allowed[pair] {
		logger.Warn("[RISK] %s: pair is not allowed", pair)
		return false
	}
	if st := m.State(pair); st != models.StateIdle {
		logger.Warn("[RISK] %s: state %s, entry rejected", pair, st)
		return false
	}
	if !helper.Finite(entryPrice) || entryPrice <= 0 {
		logger.Warn("[RISK] %s: bad entry price %v", pair, entryPrice)
		return false
	}
	avail := m.book.AvailableBalance()
	if avail <= 0 {
		logger.Warn("[RISK] %s: no available balance", pair)
		return false
	}
	if !helper.Finite(units) || units <= 0 {
		logger.Warn("[RISK] %s: position size is zero", pair)
		return false
	}
	exposure := units * entryPrice / avail * 100
	if exposure > m.cfg.RiskPerTrade*100+eps {
		logger.Warn("[RISK] %s: trade exposure %.2f%% > %.2f%%", pair, exposure, m.cfg.RiskPerTrade*100)
		return false
	}
	return true
}

// BalanceKnown: false, если последнее обновление баланса не удалось.
func (m *Manager) BalanceKnown() bool {
	return m.book.Known()
}

// CanOpenPosition: портфельный гейт. amount здесь notional в базовой валюте.
func (m *Manager) CanOpenPosition(pair string, amount float64) bool {
	avail := m.book.AvailableBalance()
	if avail <= 0 {
		logger.Warn("[RISK] %s: no available balance", pair)
		return false
	}
	if n := m.book.Count(); n >= m.cfg.MaxConcurrentPositions {
		logger.Warn("[RISK] %s: %d positions open, limit %d", pair, n, m.cfg.MaxConcurrentPositions)
		return false
	}
	exposure := (m.book.OpenNotional() + amount) / avail * 100
	if exposure > m.cfg.MaxExposure*100 {
		logger.Warn("[RISK] %s: exposure %.2f%% > %.2f%%", pair, exposure, m.cfg.MaxExposure*100)
		return false
	}
	return true
}

// CheckDailyDrawdown: true значит стоп торговли до ResetDaily.
// Если баланс не удалось обновить, используем последний снимок; нулевой или неизвестный баланс не повод для остановки.
func (m *Manager) CheckDailyDrawdown(ctx context.Context) bool {
	if err := m.book.Refresh(ctx); err != nil {
		logger.Warn("[RISK] balance refresh failed, using cached snapshot: %v", err)
	}
	total := m.book.TotalBalance()
	if total <= 0 {
		logger.Warn("[RISK] total balance unknown, drawdown check skipped")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	dd := m.dailyLoss / total * 100
	if dd >= m.cfg.MaxDailyDrawdown*100 {
		if !m.halted {
			logger.Warn("[HALT] daily drawdown %.2f%% >= %.2f%%", dd, m.cfg.MaxDailyDrawdown*100)
		}
		m.halted = true
		return true
	}
	return false
}

func (m *Manager) AddDailyLoss(v float64) {
	if v <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLoss += v
}

func (m *Manager) DailyLoss() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyLoss
}

func (m *Manager) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// ResetDaily: явный сброс дневного окна, снимает остановку.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dailyLoss > 0 || m.halted {
		logger.Info("[RISK] daily reset, loss was %.4f", m.dailyLoss)
	}
	m.dailyLoss = 0
	m.halted = false
}

func (m *Manager) record(ctx context.Context, rec models.TradeRecord) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, rec); err != nil {
		logger.Error("[JOURNAL] %s %s: %v", rec.Pair, rec.Action, err)
	}
}
