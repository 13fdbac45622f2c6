package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/pasc/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "pasc-lsp"

// lspTimeout bounds each analysis run triggered by an editor request.
const lspTimeout = 2 * time.Second

// builtins are callable without a declaration.
var builtins = []string{"read", "readln", "write", "writeln"}

// LspServer provides diagnostics, hover and completion for Pascal sources.
type LspServer struct {
	worker *CompileWorker
	log    commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		worker:  NewCompileWorker(1),
		log:     commonlog.GetLogger("pasc.lsp"),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("pasc LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.analyze(func() (any, error) {
		return s.complete(text, prefix), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.analyze(func() (any, error) {
		return s.hover(text, word, params.Position), nil
	})
	if err != nil || result == nil {
		return nil, nil
	}

	hover, _ := result.(*protocol.Hover)
	return hover, nil
}

// analyze runs fn on the worker with the editor deadline.
func (s *LspServer) analyze(fn func() (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lspTimeout)
	defer cancel()
	return s.worker.Do(ctx, fn)
}

// --- Analysis (called on worker goroutine) ---

// symbols returns the declarations in text, or nil if it does not parse.
func symbols(text string) []compiler.SymbolInfo {
	prog, err := compiler.Parse(text)
	if err != nil {
		return nil
	}
	return compiler.Symbols(prog)
}

func (s *LspServer) complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	lowerPrefix := strings.ToLower(prefix)

	add := func(label, detail string, kind protocol.CompletionItemKind) {
		key := strings.ToLower(label)
		if seen[key] || !strings.HasPrefix(key, lowerPrefix) {
			return
		}
		seen[key] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	// Declared names
	for _, sym := range symbols(text) {
		add(sym.Name, symbolDetail(sym), completionKind(sym.Kind))
	}

	// Built-in procedures
	for _, name := range builtins {
		add(name, "built-in procedure", protocol.CompletionItemKindFunction)
	}

	// Keywords
	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(text, word string, pos protocol.Position) *protocol.Hover {
	sym, ok := resolveSymbol(symbols(text), word, pos)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`", sym.Kind, symbolDetail(sym))
	if sym.Scope != "" {
		fmt.Fprintf(&b, "\n\nDeclared in %s", sym.Scope)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// resolveSymbol picks the declaration of word that is in effect at pos: the
// last one declared at or before pos, or the first one otherwise. Pascal
// names are case-insensitive.
func resolveSymbol(syms []compiler.SymbolInfo, word string, pos protocol.Position) (compiler.SymbolInfo, bool) {
	line := int(pos.Line) + 1
	var first, before compiler.SymbolInfo
	haveFirst, haveBefore := false, false
	for _, sym := range syms {
		if !strings.EqualFold(sym.Name, word) {
			continue
		}
		if !haveFirst {
			first, haveFirst = sym, true
		}
		if sym.Pos.Line <= line && (!haveBefore || sym.Pos.Line >= before.Pos.Line) {
			before, haveBefore = sym, true
		}
	}
	if haveBefore {
		return before, true
	}
	return first, haveFirst
}

// symbolDetail renders "name: type", or just the name when the type is
// unknown or the symbol is a procedure.
func symbolDetail(sym compiler.SymbolInfo) string {
	if sym.Type == "" {
		return sym.Name
	}
	return sym.Name + ": " + sym.Type
}

func completionKind(k compiler.SymbolKind) protocol.CompletionItemKind {
	switch k {
	case compiler.SymConstant:
		return protocol.CompletionItemKindConstant
	case compiler.SymProcedure, compiler.SymFunction:
		return protocol.CompletionItemKindFunction
	case compiler.SymType:
		return protocol.CompletionItemKindClass
	default:
		return protocol.CompletionItemKindVariable
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.analyze(func() (any, error) {
		return diagnose(text), nil
	})
	if err != nil {
		s.log.Warningf("diagnostics for %s: %v", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// diagnose checks text and converts every problem to an LSP diagnostic
// spanning the word at its position.
func diagnose(text string) []protocol.Diagnostic {
	diags, _ := compiler.Check(text)

	lines := strings.Split(text, "\n")
	out := make([]protocol.Diagnostic, 0, len(diags))
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    diagnosticRange(lines, d.Pos),
			Severity: &severity,
			Source:   &source,
			Message:  d.Msg,
		})
	}
	return out
}

// diagnosticRange converts a 1-based compiler position, whose column counts
// runes, to an LSP range measured in UTF-16 code units. The range covers
// the identifier starting there, or one character.
func diagnosticRange(lines []string, p compiler.Position) protocol.Range {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}

	var runes []rune
	if line < len(lines) {
		runes = []rune(lines[line])
	}
	if col > len(runes) {
		col = len(runes)
	}

	start := utf16Len(runes[:col])
	end := col
	for end < len(runes) && isIdentChar(runes[end]) {
		end++
	}
	width := utf16Len(runes[col:end])
	if width == 0 {
		width = 1
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(start)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(start + width)},
	}
}

func utf16Len(runes []rune) int {
	n := 0
	for _, r := range runes {
		n += utf16.RuneLen(r)
	}
	return n
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
