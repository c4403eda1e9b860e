// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Very basic S-expression parser.  Used for the textual form of the
// functions handed to the register allocator.  A ';' starts a
// comment that runs to the end of the line.

package util

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type SExpKindT int

const (
	SExpInt SExpKindT = iota
	SExpSymbol
	SExpList
)

type SExpT struct {
	Kind    SExpKindT
	Integer int
	Symbol  string
	List    []*SExpT
}

func (sexp *SExpT) String() string {
	switch sexp.Kind {
	case SExpInt:
		return fmt.Sprintf("%d", sexp.Integer)
	case SExpSymbol:
		return sexp.Symbol
	case SExpList:
		if len(sexp.List) == 0 {
			return "()"
		}
		result := "(" + sexp.List[0].String()
		for _, s := range sexp.List[1:] {
			result += " " + s.String()
		}
		return result + ")"
	}
	panic("bad S-expression")
}

func (sexp *SExpT) IsSymbol(name string) bool {
	return sexp.Kind == SExpSymbol && sexp.Symbol == name
}

// The symbol at the head of a list, or "" if there isn't one.

func (sexp *SExpT) Head() string {
	if sexp.Kind != SExpList || len(sexp.List) == 0 || sexp.List[0].Kind != SExpSymbol {
		return ""
	}
	return sexp.List[0].Symbol
}

// Panics on malformed input.  Returns nil if 'data' is empty.

func ParseSExp(data string) *SExpT {
	tokens := tokenizer(data)
	var recur func(list *SExpT) *SExpT
	recur = func(list *SExpT) *SExpT {
		for {
			next := tokens()
			if next == "" {
				if list != nil {
					panic("unexpected end of input")
				}
				return nil
			}
			if next == "\x29" {
				if list == nil {
					panic("unexpected '\x29'")
				} else {
					return nil
				}
			}
			nextSExp := &SExpT{}
			if next == "\x28" {
				nextSExp.Kind = SExpList
				recur(nextSExp)
			} else {
				i, err := strconv.Atoi(next)
				if err == nil {
					nextSExp.Kind = SExpInt
					nextSExp.Integer = i
				} else {
					nextSExp.Kind = SExpSymbol
					nextSExp.Symbol = next
				}
			}
			if list == nil {
				return nextSExp
			}
			list.List = append(list.List, nextSExp)
		}
	}
	return recur(nil)
}

// Same as ParseSExp but returns an error instead of panicking.

func ReadSExp(data string) (sexp *SExpT, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("s-expression: %v", r)
		}
	}()
	sexp = ParseSExp(data)
	if sexp == nil {
		return nil, fmt.Errorf("s-expression: empty input")
	}
	return sexp, nil
}

func tokenizer(data string) func() string {
	reader := bufio.NewReader(strings.NewReader(data))
	return func() string {
		return nextToken(reader)
	}
}

func nextToken(reader *bufio.Reader) string {
	var contents strings.Builder
	readingInteger := false
	readingSymbol := false
	for {
		c, _, err := reader.ReadRune()
		if readingInteger {
			if err != nil || !unicode.IsDigit(c) {
				if err == nil && isSymbolConstituent(c) {
					// 12abc is a symbol
					contents.WriteRune(c)
					readingInteger = false
					readingSymbol = true
					continue
				}
				reader.UnreadRune()
				return contents.String()
			} else {
				contents.WriteRune(c)
				continue
			}
		} else if readingSymbol {
			if err != nil || !isSymbolConstituent(c) {
				reader.UnreadRune()
				return contents.String()
			} else {
				contents.WriteRune(c)
				continue
			}
		} else if err == io.EOF {
			return ""
		} else if err != nil {
			panic(err)
		} else if unicode.IsSpace(c) {
			continue
		} else if c == ';' {
			skipLine(reader)
			continue
		} else if c == '\x28' {
			return "\x28"
		} else if c == '\x29' {
			return "\x29"
		} else if unicode.IsDigit(c) {
			contents.WriteRune(c)
			readingInteger = true
			continue
		} else if isSymbolConstituent(c) {
			contents.WriteRune(c)
			readingSymbol = true
			continue
		}
		panic("Unrecognized s-expression character " + strconv.QuoteRune(c))
	}
}

func skipLine(reader *bufio.Reader) {
	for {
		c, _, err := reader.ReadRune()
		if err != nil || c == '\n' {
			return
		}
	}
}

func isSymbolConstituent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == ':' || r == '_' || r == '*' || r == '&' || r == '-' || r == '.'
}
