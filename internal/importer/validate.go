package importer

import (
	"fmt"

	"github.com/alexanderramin/smeta/internal/domain"
)

var validResourceKinds = map[string]bool{
	string(domain.ResourceLabor):     true,
	string(domain.ResourceMaterial):  true,
	string(domain.ResourceEquipment): true,
}

// ValidateDocument checks a parsed document before conversion and returns
// every problem found.
func ValidateDocument(doc *Document) []error {
	var errs []error

	sectionRefs := make(map[string]bool, len(doc.Sections))
	for i, s := range doc.Sections {
		prefix := fmt.Sprintf("sections[%d]", i)
		if s.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if sectionRefs[s.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref %q is duplicated", prefix, s.Ref))
		}
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		// Parents must come first; this also rules out cycles.
		if s.ParentRef != nil && !sectionRefs[*s.ParentRef] {
			errs = append(errs, fmt.Errorf("%s.parent_ref %q does not reference an earlier section", prefix, *s.ParentRef))
		}
		sectionRefs[s.Ref] = true
	}

	itemRefs := make(map[string]bool, len(doc.Items))
	for i, it := range doc.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if itemRefs[it.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref %q is duplicated", prefix, it.Ref))
		}
		if it.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if it.SectionRef != nil && !sectionRefs[*it.SectionRef] {
			errs = append(errs, fmt.Errorf("%s.section_ref %q not found", prefix, *it.SectionRef))
		}
		if it.ParentRef != nil && !itemRefs[*it.ParentRef] {
			errs = append(errs, fmt.Errorf("%s.parent_ref %q does not reference an earlier item", prefix, *it.ParentRef))
		}
		if it.Quantity < 0 {
			errs = append(errs, fmt.Errorf("%s.quantity must be >= 0, got %g", prefix, it.Quantity))
		}
		if it.Price != nil && *it.Price < 0 {
			errs = append(errs, fmt.Errorf("%s.price must be >= 0, got %g", prefix, *it.Price))
		}
		for j, r := range it.Resources {
			if !validResourceKinds[r.Kind] {
				errs = append(errs, fmt.Errorf("%s.resources[%d].kind: invalid value %q", prefix, j, r.Kind))
			}
			if r.Name == "" {
				errs = append(errs, fmt.Errorf("%s.resources[%d].name is required", prefix, j))
			}
		}
		for j, w := range it.SubWorks {
			if w.Name == "" {
				errs = append(errs, fmt.Errorf("%s.sub_works[%d].name is required", prefix, j))
			}
		}
		itemRefs[it.Ref] = true
	}
	return errs
}
