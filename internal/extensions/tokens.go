package extensions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	TokensKey = "extension-tokens"

	MaxContentLength = 150
	MaxWinnerLength  = 30
	MaxGenerate      = 50
)

var (
	ErrTokenNotFound = errors.New("extensions: token not found")
	ErrTokenUsed     = errors.New("extensions: token already used")
)

// ValidationError carries the user-facing reason a redemption was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "extensions: " + e.Message }

type TokenType string

const (
	TypeFact     TokenType = "fact"
	TypePhrase   TokenType = "phrase"
	TypeBehavior TokenType = "behavior"
)

var tokenTypes = []TokenType{TypeFact, TypePhrase, TypeBehavior}

func (t TokenType) valid() bool {
	for _, v := range tokenTypes {
		if t == v {
			return true
		}
	}
	return false
}

var forbiddenWords = []string{"hack", "delete", "admin", "password"}

// Token is a one-time redemption code. Used flips exactly once.
type Token struct {
	Used      bool       `json:"used"`
	Winner    *string    `json:"winner"`
	Type      TokenType  `json:"type"`
	Persona   string     `json:"persona,omitempty"`
	Content   string     `json:"content,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type tokenDoc struct {
	Tokens map[string]Token `json:"tokens"`
}

// Namespace is where a persona's extensions live.
type Namespace struct {
	Key         string
	DisplayName string
}

// ServiceConfig wires persona namespaces into the token service.
type ServiceConfig struct {
	Namespaces     map[string]Namespace
	DefaultPersona string
	BaseURL        string
}

// Service implements token check, redemption, generation and listing.
// Redemption is read-modify-write without compare-and-swap: two concurrent
// redemptions of the same token can both succeed.
type Service struct {
	kv     kvstore.Store
	loader *Loader
	cfg    ServiceConfig
	logger *logging.Logger
	now    func() time.Time
	intN   func(int) int
}

func NewService(kv kvstore.Store, cfg ServiceConfig, logger *logging.Logger) *Service {
	if kv == nil {
		kv = kvstore.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		kv:     kv,
		loader: NewLoader(kv, logger),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		intN:   rand.IntN,
	}
}

func (s *Service) load(ctx context.Context) (map[string]Token, error) {
	var doc tokenDoc
	if _, err := s.kv.Get(ctx, TokensKey, &doc); err != nil {
		return nil, fmt.Errorf("extensions: load tokens: %w", err)
	}
	if doc.Tokens == nil {
		doc.Tokens = make(map[string]Token)
	}
	return doc.Tokens, nil
}

func (s *Service) save(ctx context.Context, tokens map[string]Token) error {
	if err := s.kv.Set(ctx, TokensKey, tokenDoc{Tokens: tokens}); err != nil {
		return fmt.Errorf("extensions: save tokens: %w", err)
	}
	return nil
}

// Check reports whether id can still be redeemed.
func (s *Service) Check(ctx context.Context, id string) (Token, error) {
	tokens, err := s.load(ctx)
	if err != nil {
		return Token{}, err
	}
	tok, ok := tokens[id]
	if !ok || id == "" {
		return Token{}, ErrTokenNotFound
	}
	if tok.Used {
		return tok, ErrTokenUsed
	}
	return tok, nil
}

type RedeemRequest struct {
	Token      string `json:"token"`
	Content    string `json:"content"`
	WinnerName string `json:"winner_name"`
}

type RedeemResult struct {
	Type        TokenType
	Winner      string
	Persona     string
	DisplayName string
}

// Redeem validates the request, marks the token used and appends the extension
// to the token's persona namespace.
func (s *Service) Redeem(ctx context.Context, req RedeemRequest) (RedeemResult, error) {
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.WinnerName) == "" {
		return RedeemResult{}, &ValidationError{Message: "Token, Content und Name erforderlich"}
	}
	tokens, err := s.load(ctx)
	if err != nil {
		return RedeemResult{}, err
	}
	tok, ok := tokens[req.Token]
	if !ok {
		return RedeemResult{}, ErrTokenNotFound
	}
	if tok.Used {
		return RedeemResult{}, ErrTokenUsed
	}
	if utf8.RuneCountInString(req.Content) > MaxContentLength {
		return RedeemResult{}, &ValidationError{Message: fmt.Sprintf("Text zu lang (max %d Zeichen)", MaxContentLength)}
	}
	if utf8.RuneCountInString(req.WinnerName) > MaxWinnerLength {
		return RedeemResult{}, &ValidationError{Message: fmt.Sprintf("Name zu lang (max %d Zeichen)", MaxWinnerLength)}
	}
	lower := strings.ToLower(req.Content)
	for _, word := range forbiddenWords {
		if strings.Contains(lower, word) {
			return RedeemResult{}, &ValidationError{Message: "Unerlaubter Inhalt"}
		}
	}
	if !tok.Type.valid() {
		return RedeemResult{}, &ValidationError{Message: "Ungültiger Tokentyp"}
	}

	persona := tok.Persona
	if persona == "" {
		persona = s.cfg.DefaultPersona
	}
	ns, ok := s.cfg.Namespaces[persona]
	if !ok {
		return RedeemResult{}, &ValidationError{Message: "Unbekannte Persönlichkeit"}
	}

	now := s.now().UTC()
	winner := req.WinnerName
	tok.Used = true
	tok.Winner = &winner
	tok.Content = req.Content
	tok.Timestamp = &now
	tokens[req.Token] = tok
	if err := s.save(ctx, tokens); err != nil {
		return RedeemResult{}, err
	}

	ext := Extension{Content: req.Content, Winner: winner, Timestamp: now, Token: req.Token, Type: tok.Type}
	if err := s.loader.appendExtension(ctx, ns.Key, ext); err != nil {
		return RedeemResult{}, err
	}
	s.logger.Info("extension redeemed", "persona", persona, "type", tok.Type, "winner", winner)
	return RedeemResult{Type: tok.Type, Winner: winner, Persona: persona, DisplayName: ns.DisplayName}, nil
}

// GeneratedToken is a freshly minted token with its redemption link.
type GeneratedToken struct {
	ID      string    `json:"id"`
	Type    TokenType `json:"type"`
	Persona string    `json:"persona"`
	URL     string    `json:"url"`
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate mints count tokens with random types for persona.
func (s *Service) Generate(ctx context.Context, count int, persona string) ([]GeneratedToken, error) {
	if count < 1 || count > MaxGenerate {
		return nil, &ValidationError{Message: fmt.Sprintf("Count muss zwischen 1-%d sein", MaxGenerate)}
	}
	if persona == "" {
		persona = s.cfg.DefaultPersona
	}
	if _, ok := s.cfg.Namespaces[persona]; !ok {
		return nil, &ValidationError{Message: "Unbekannte Persönlichkeit"}
	}
	tokens, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]GeneratedToken, 0, count)
	for i := 1; i <= count; i++ {
		id := s.newID(i)
		for _, exists := tokens[id]; exists; _, exists = tokens[id] {
			id = s.newID(i)
		}
		typ := tokenTypes[s.intN(len(tokenTypes))]
		tokens[id] = Token{Type: typ, Persona: persona}
		out = append(out, GeneratedToken{
			ID:      id,
			Type:    typ,
			Persona: persona,
			URL:     fmt.Sprintf("%s/token?token=%s", strings.TrimRight(s.cfg.BaseURL, "/"), id),
		})
	}
	if err := s.save(ctx, tokens); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) newID(i int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "win%d-", i)
	for j := 0; j < 6; j++ {
		b.WriteByte(idAlphabet[s.intN(len(idAlphabet))])
	}
	return b.String()
}

// TokenStatus is the admin view of a token with its id shortened.
type TokenStatus struct {
	Token   string    `json:"token"`
	Used    bool      `json:"used"`
	Winner  *string   `json:"winner"`
	Type    TokenType `json:"type"`
	Persona string    `json:"persona,omitempty"`
}

// List returns every token sorted by id.
func (s *Service) List(ctx context.Context) ([]TokenStatus, error) {
	tokens, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]TokenStatus, 0, len(ids))
	for _, id := range ids {
		tok := tokens[id]
		short := id
		if len(short) > 8 {
			short = short[:8] + "..."
		}
		out = append(out, TokenStatus{Token: short, Used: tok.Used, Winner: tok.Winner, Type: tok.Type, Persona: tok.Persona})
	}
	return out, nil
}
