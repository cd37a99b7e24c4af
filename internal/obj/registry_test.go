package obj

import "testing"

func TestRegistryLinkAndFanoutLists(t *testing.T) {
	r := NewRegistry()
	console := r.Add("console0", KindSerial, 64)
	client := r.Add("client0", KindClient, 64)

	r.Link(console.ID, client.ID)

	if len(console.ReaderPeers) != 1 || console.ReaderPeers[0] != client.ID {
		t.Fatalf("console.ReaderPeers = %v, want [%d]", console.ReaderPeers, client.ID)
	}
	if len(client.WriterPeers) != 1 || client.WriterPeers[0] != console.ID {
		t.Fatalf("client.WriterPeers = %v, want [%d]", client.WriterPeers, console.ID)
	}
}

func TestRegistryFindByName(t *testing.T) {
	r := NewRegistry()
	r.Add("console0", KindSerial, 64)
	r.Add("console1", KindTelnet, 64)

	id, ok := r.FindByName("console1")
	if !ok {
		t.Fatalf("FindByName(console1) not found")
	}
	if got := r.Get(id); got == nil || got.Name != "console1" {
		t.Fatalf("FindByName resolved to wrong object: %+v", got)
	}

	if _, ok := r.FindByName("nope"); ok {
		t.Fatalf("FindByName(nope) unexpectedly found")
	}
}

func TestRegistryRemoveCleansPeerLists(t *testing.T) {
	r := NewRegistry()
	console := r.Add("console0", KindSerial, 64)
	client := r.Add("client0", KindClient, 64)
	r.Link(console.ID, client.ID)

	r.Remove(client.ID)

	if len(console.ReaderPeers) != 0 {
		t.Fatalf("console.ReaderPeers after Remove(client) = %v, want empty", console.ReaderPeers)
	}
	if r.Get(client.ID) != nil {
		t.Fatalf("removed client still resolvable")
	}
	all := r.All()
	if len(all) != 1 || all[0].ID != console.ID {
		t.Fatalf("All() after Remove = %v, want only console", all)
	}
}
