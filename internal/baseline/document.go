package baseline

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/apisurface/internal/model"
)

// Current schema version - increment when the document layout changes.
// Version 2 escapes XML text (see escapeXMLText); version 1 XML wrote it
// verbatim.
const documentVersion uint16 = 2

// document is the serialized form shared by the XML and msgpack encodings.
// Kinds are written by name so the files stay stable if the enums grow.
type document struct {
	XMLName   xml.Name     `xml:"ApiSurface" msgpack:"-"`
	Magic     string       `xml:"-" msgpack:"magic"`
	Version   uint16       `xml:"version,attr" msgpack:"version"`
	Libraries []docLibrary `xml:"Library" msgpack:"libraries"`
}

type docLibrary struct {
	Name       string         `xml:"name,attr" msgpack:"name"`
	Display    string         `xml:"display,attr" msgpack:"display"`
	Namespaces []docNamespace `xml:"Namespace" msgpack:"namespaces"`
}

type docNamespace struct {
	Name  string    `xml:"name,attr" msgpack:"name"`
	Types []docType `xml:"Type" msgpack:"types"`
}

type docType struct {
	Name      string      `xml:"name,attr" msgpack:"name"`
	Kind      string      `xml:"kind,attr" msgpack:"kind"`
	Signature string      `xml:"Signature" msgpack:"signature"`
	Members   []docMember `xml:"Member" msgpack:"members"`
}

type docMember struct {
	Name      string `xml:"name,attr" msgpack:"name"`
	Kind      string `xml:"kind,attr" msgpack:"kind"`
	Signature string `xml:",chardata" msgpack:"signature"`
}

const msgpackMagic = "apisurface"

func toDocument(set *model.LibrarySet) *document {
	doc := &document{Version: documentVersion, Libraries: make([]docLibrary, len(set.Libraries))}
	for i, l := range set.Libraries {
		dl := docLibrary{Name: l.Name, Display: l.Display, Namespaces: make([]docNamespace, len(l.Namespaces))}
		for j, n := range l.Namespaces {
			dn := docNamespace{Name: n.Name, Types: make([]docType, len(n.Types))}
			for k, t := range n.Types {
				dt := docType{Name: t.Name, Kind: t.Kind.String(), Signature: t.Signature, Members: make([]docMember, len(t.Members))}
				for m, mem := range t.Members {
					dt.Members[m] = docMember{Name: mem.Name, Kind: mem.Kind.String(), Signature: mem.Signature}
				}
				dn.Types[k] = dt
			}
			dl.Namespaces[j] = dn
		}
		doc.Libraries[i] = dl
	}
	return doc
}

func fromDocument(doc *document) (*model.LibrarySet, error) {
	if doc.Version < 1 || doc.Version > documentVersion {
		return nil, fmt.Errorf("document version %d: %w", doc.Version, ErrUnknownFormat)
	}
	set := &model.LibrarySet{Libraries: make([]*model.Library, len(doc.Libraries))}
	for i, dl := range doc.Libraries {
		l := &model.Library{Name: dl.Name, Display: dl.Display, Namespaces: make([]*model.Namespace, len(dl.Namespaces))}
		for j, dn := range dl.Namespaces {
			n := &model.Namespace{Name: dn.Name, Types: make([]*model.Type, len(dn.Types))}
			for k, dt := range dn.Types {
				kind, err := model.ParseTypeKind(dt.Kind)
				if err != nil {
					return nil, fmt.Errorf("type %s: %w", dt.Name, err)
				}
				t := &model.Type{Name: dt.Name, Kind: kind, Signature: dt.Signature, Members: make([]*model.Member, len(dt.Members))}
				for m, dm := range dt.Members {
					mk, err := model.ParseMemberKind(dm.Kind)
					if err != nil {
						return nil, fmt.Errorf("member %s.%s: %w", dt.Name, dm.Name, err)
					}
					t.Members[m] = &model.Member{Name: dm.Name, Kind: mk, Signature: dm.Signature}
				}
				n.Types[k] = t
			}
			l.Namespaces[j] = n
		}
		set.Libraries[i] = l
	}
	return set, nil
}

func encodeXML(w io.Writer, set *model.LibrarySet) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	doc := toDocument(set)
	if err := doc.mapText(func(s string) (string, error) { return escapeXMLText(s), nil }); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func decodeXML(r io.Reader) (*model.LibrarySet, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	if doc.Version >= 2 {
		if err := doc.mapText(unescapeXMLText); err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
	}
	return fromDocument(&doc)
}

func encodeMsgpack(w io.Writer, set *model.LibrarySet) error {
	doc := toDocument(set)
	doc.Magic = msgpackMagic
	return msgpack.NewEncoder(w).Encode(doc)
}

func decodeMsgpack(r io.Reader) (*model.LibrarySet, error) {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode msgpack: %w", err)
	}
	if doc.Magic != msgpackMagic {
		return nil, fmt.Errorf("missing msgpack header: %w", ErrUnknownFormat)
	}
	return fromDocument(&doc)
}

// isMsgpackMap reports whether b starts a msgpack map: fixmap, map16 or
// map32.
func isMsgpackMap(b byte) bool {
	return b&0xf0 == 0x80 || b == 0xde || b == 0xdf
}
