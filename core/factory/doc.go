// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, snapshot stores) from configuration. A
// module is described by a type string and a map of raw settings decoded into
// typed structs by the registered factory.
//
//	reg := factory.NewRegistry[snapshot.Store]()
//	_ = reg.Register("dat", func(conf map[string]any) (snapshot.Store, error) {
//	    var c struct{ Dir string `json:"dir"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return snapshot.NewDatStore(c.Dir)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "dat", Conf: map[string]any{"dir": "data"}})
package factory
