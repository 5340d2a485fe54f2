package collage

import (
	"errors"
	"slices"
	"sync"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// ErrFull はコラージュが上限枚数に達している状態で追加しようとした場合に返されます。
var ErrFull = errors.New("collage is full")

// Observer は画像リストが変わるたびに呼ばれるコールバックです。
// 受け取るスライスはコピーなので保持しても構いません。
type Observer func(images []domain.Image)

// State は選択中の画像リストと、そのセッションで見たフィンガープリントを保持します。
// 変更と通知は所有コンテキスト上でのみ行う前提のため、状態自体はロックしません。
type State struct {
	images       []domain.Image
	fingerprints map[int]struct{}

	mu        sync.Mutex
	observers map[uint64]Observer
	nextID    uint64
}

// NewState は空の State を生成します。
func NewState() *State {
	return &State{
		fingerprints: make(map[int]struct{}),
		observers:    make(map[uint64]Observer),
	}
}

// Len は現在の枚数を返します。
func (s *State) Len() int {
	return len(s.images)
}

// Images は現在の画像リストのコピーを選択順で返します。
func (s *State) Images() []domain.Image {
	out := make([]domain.Image, len(s.images))
	copy(out, s.images)
	return out
}

// Append は画像を末尾に追加して購読者へ通知します。
func (s *State) Append(img domain.Image) error {
	if len(s.images) >= domain.MaxCollageImages {
		return ErrFull
	}
	s.images = append(s.images, img)
	s.notify()
	return nil
}

// Clear は画像リストとフィンガープリントキャッシュを無条件に空にし、購読者へ通知します。
func (s *State) Clear() {
	s.images = nil
	s.fingerprints = make(map[int]struct{})
	s.notify()
}

// HasFingerprint は fp がこのセッションで既に受け入れられているかを返します。
func (s *State) HasFingerprint(fp int) bool {
	_, ok := s.fingerprints[fp]
	return ok
}

// RecordFingerprint は fp をキャッシュに記録します。
func (s *State) RecordFingerprint(fp int) {
	s.fingerprints[fp] = struct{}{}
}

// FingerprintCount はキャッシュに記録されている件数を返します。
func (s *State) FingerprintCount() int {
	return len(s.fingerprints)
}

// Observe は fn を購読者として登録します。
// 登録時に現在の値で一度だけ即座に呼び出し、その後は変更のたびに呼び出します。
func (s *State) Observe(fn Observer) *Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	fn(s.Images())
	return &Subscription{state: s, id: id}
}

func (s *State) notify() {
	s.mu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	// 購読者は登録順に呼び出す
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(s.Images())
	}
}

func (s *State) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

// Subscription は Observe の登録を解除するためのハンドルです。
type Subscription struct {
	state *State
	id    uint64
	once  sync.Once
}

// Cancel は購読を解除します。何度呼んでも安全です。
func (sub *Subscription) Cancel() {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		sub.state.unsubscribe(sub.id)
	})
}
