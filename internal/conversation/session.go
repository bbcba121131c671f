package conversation

import (
	"sync"
	"time"
)

// Session - прогресс пользователя в диалоге. Живет только в памяти.
type Session struct {
	State     State
	UpdatedAt time.Time
}

// SessionStore хранит сессии и выдает блокировку на пользователя.
// Пока блокировка удерживается, сессию пользователя никто другой не меняет.
type SessionStore interface {
	Lock(userID int64) (unlock func())

	Get(userID int64) Session

	Put(userID int64, state State)

	Reset(userID int64)
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// MemorySessions - SessionStore в памяти процесса
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[int64]Session
	locks    map[int64]*userLock
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*userLock),
		now:      time.Now,
	}
}

func (s *MemorySessions) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *MemorySessions) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{State: Idle{}}
	}
	return sess
}

func (s *MemorySessions) Put(userID int64, state State) {
	if _, idle := state.(Idle); idle || state == nil {
		s.Reset(userID)
		return
	}

	s.mu.Lock()
	s.sessions[userID] = Session{State: state, UpdatedAt: s.now()}
	s.mu.Unlock()
}

func (s *MemorySessions) Reset(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Len - число незавершенных диалогов
func (s *MemorySessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
