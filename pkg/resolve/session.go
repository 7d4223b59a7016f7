package resolve

import (
	"errors"
	"fmt"

	"github.com/sdejongh/audiopatch/pkg/models"
)

var (
	// ErrUnknownKey is returned for keys absent from the conflict map
	ErrUnknownKey = errors.New("unknown conflict key")
	// ErrForeignVariant is returned when a winner is not listed for its key
	ErrForeignVariant = errors.New("variant does not belong to conflict")
)

// Field names a presentation flag of a variant
type Field string

const (
	FieldWinner  Field = "winner"
	FieldPlaying Field = "playing"
)

// Change describes one presentation flag that flipped
type Change struct {
	Key     string
	Variant *models.Variant
	Field   Field
	Value   bool
}

// Session owns the conflicts of one scan and the winners chosen for them.
// Flag updates are returned as Change values so observers can react
// without the session knowing about them.
type Session struct {
	Conflicts models.ConflictMap
	Winners   models.WinnerMap

	current string
}

// NewSession starts a session over conflicts, pre-selecting the winners
// of an existing generated patch
func NewSession(conflicts models.ConflictMap) *Session {
	s := &Session{Winners: make(models.WinnerMap)}
	s.Reset(conflicts)
	return s
}

// Reset replaces the conflicts after a rescan. Winners are cleared and
// repopulated from the generated patch; the number installed is returned.
func (s *Session) Reset(conflicts models.ConflictMap) int {
	if conflicts == nil {
		conflicts = make(models.ConflictMap)
	}
	s.Conflicts = conflicts
	s.Winners.Clear()
	s.current = ""

	n := AutoSelectPatchWinners(s.Conflicts, s.Winners)
	for key := range s.Conflicts {
		s.syncWinnerFlags(key)
	}
	return n
}

// Current returns the selected key, empty when none
func (s *Session) Current() string {
	return s.current
}

// Select makes key current, ordering its variants by priority and
// refreshing their flags. Playback state is reset.
func (s *Session) Select(key string) ([]*models.Variant, []Change, error) {
	list, ok := s.Conflicts[key]
	if !ok {
		s.current = ""
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	s.current = key
	models.SortVariants(list)

	changes := s.syncWinnerFlags(key)
	for _, v := range list {
		if v.IsPlaying {
			v.IsPlaying = false
			changes = append(changes, Change{Key: key, Variant: v, Field: FieldPlaying, Value: false})
		}
	}
	return list, changes, nil
}

// SetWinner records v as the explicit winner of key
func (s *Session) SetWinner(key string, v *models.Variant) ([]Change, error) {
	if _, ok := s.Conflicts[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !s.Conflicts.Contains(key, v) {
		return nil, fmt.Errorf("%w: %s", ErrForeignVariant, key)
	}

	s.Winners[key] = v
	return s.syncWinnerFlags(key), nil
}

// ClearWinner removes the explicit winner of key
func (s *Session) ClearWinner(key string) []Change {
	delete(s.Winners, key)
	return s.syncWinnerFlags(key)
}

// Effective returns the explicit or default winner of key
func (s *Session) Effective(key string) *models.Variant {
	return EffectiveWinner(s.Conflicts, s.Winners, key)
}

// syncWinnerFlags aligns IsWinner with the explicit winner of key
func (s *Session) syncWinnerFlags(key string) []Change {
	winner := s.Winners[key]

	var changes []Change
	for _, v := range s.Conflicts[key] {
		want := winner != nil && v == winner
		if v.IsWinner != want {
			v.IsWinner = want
			changes = append(changes, Change{Key: key, Variant: v, Field: FieldWinner, Value: want})
		}
	}
	return changes
}
