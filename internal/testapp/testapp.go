// Package testapp serves the pages the entity and form tests run against:
// a list of people, an edit form for one of them and a page whose content
// appears after a delay.
package testapp

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
)

// Declarations describes the people list and edit form in the HCL format
// read by internal/decl.
//
//go:embed people.hcl
var Declarations []byte

// Person is the record behind the edit form.
type Person struct {
	ID        int
	Name      string
	LastName  string
	Bio       string
	FavColor  string
	Age       string
	Vehicles  []string
	Allergies []string
	IsHuman   bool
}

// Alice is the person the edit form starts with.
func Alice() Person {
	return Person{
		ID:       23,
		Name:     "Alice",
		LastName: "Cooper",
		Bio:      "Alice is fun",
		FavColor: "blue",
		Age:      "23",
	}
}

// New returns the fixture application.
func New() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		render(w, peopleTmpl, nil)
	})
	mux.HandleFunc("GET /people/23/edit", func(w http.ResponseWriter, r *http.Request) {
		render(w, editTmpl, editPage{Person: Alice()})
	})
	mux.HandleFunc("POST /people/23", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p := Person{
			ID:        23,
			Name:      r.PostForm.Get("person[name]"),
			LastName:  r.PostForm.Get("person[last_name]"),
			Bio:       r.PostForm.Get("person[bio]"),
			FavColor:  r.PostForm.Get("person[fav_color]"),
			Age:       r.PostForm.Get("person[age]"),
			Vehicles:  r.PostForm["person[vehicles][]"],
			Allergies: r.PostForm["allergies"],
		}
		if v := r.PostForm["is_human"]; len(v) > 0 {
			p.IsHuman = v[len(v)-1] == "1"
		}
		slog.Debug("testapp update", "person", p.ID, "fields", len(r.PostForm))
		render(w, editTmpl, editPage{Person: p, Flash: "Person updated successfully."})
	})
	mux.HandleFunc("GET /delayed", func(w http.ResponseWriter, r *http.Request) {
		delay := 300
		if v, err := strconv.Atoi(r.URL.Query().Get("ms")); err == nil {
			delay = v
		}
		render(w, delayedTmpl, delay)
	})
	return mux
}

type editPage struct {
	Person
	Flash string
}

func (p editPage) HasVehicle(v string) bool { return slices.Contains(p.Vehicles, v) }
func (p editPage) HasAllergy(v string) bool { return slices.Contains(p.Allergies, v) }

func render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		slog.Error("testapp render", "template", t.Name(), "err", err)
	}
}

var peopleTmpl = template.Must(template.New("people").Parse(`<html>
  <body>
    <h1>Here are people and animals</h1>
    <div id="people">
      <div class="person active" data-rank="1" data-uuid="e94bb2d3-71d2-4efb-abd4-ebc0cb58d19f">
        <h2 class="name">Alice</h2>
        <p class="last-name">Cooper</p>
        <p class="bio">Alice is fun</p>
        <p class="fav-color">Blue</p>
        <p class="age">23</p>
      </div>
      <div class="person" data-rank="3" data-uuid="05bf319e-8d6a-43c2-be37-2dad8ddbe5af">
        <h2 class="name">Bob</h2>
        <p class="last-name">Marley</p>
        <p class="bio">Bob is smart</p>
        <p class="fav-color">Red</p>
        <p class="age">52</p>
      </div>
      <div class="person" data-rank="2" data-uuid="4abcdeff-1d36-44a9-a05e-8fc57564d2c4">
        <h2 class="name">Charlie</h2>
        <p class="last-name">Murphy</p>
        <p class="bio">Charlie is wild</p>
        <p class="fav-color">Red</p>
      </div>
      <div class="person" data-rank="7" data-blocked="blocked" data-uuid="2afccde0-5d13-41c7-ab01-7f37fb2fe3ee">
        <h2 class="name">Donna</h2>
        <p class="last-name">Summer</p>
        <p class="bio">Donna is quiet</p>
      </div>
    </div>
    <div id="animals"></div>
    <div id="receipts">
      <div class="receipt" id="receipt-72" data-store="ACME"></div>
    </div>
  </body>
</html>
`))

var editTmpl = template.Must(template.New("edit").Parse(`<html>
  <body>
    <div class="flash">{{.Flash}}</div>
    <h1>Edit Person</h1>

    <form action="/people/{{.ID}}" method="post" class="person">
      <div class="input name">
        <label for="person_name">First Name</label>
        <input type="text" id="person_name" name="person[name]" value="{{.Name}}" />
      </div>

      <div class="input last_name">
        <label for="person_last_name">Last Name</label>
        <input type="text" id="person_last_name" name="person[last_name]" value="{{.LastName}}" />
      </div>

      <div class="input bio">
        <label for="person_bio">Biography</label>
        <textarea id="person_bio" name="person[bio]">{{.Bio}}</textarea>
      </div>

      <div class="input fav_color">
        <label for="person_fav_color">Favorite Color</label>
        <select id="person_fav_color" name="person[fav_color]">
          <option value="">- Select a Color -</option>
          <option value="red"{{if eq .FavColor "red"}} selected="selected"{{end}}>Red</option>
          <option value="blue"{{if eq .FavColor "blue"}} selected="selected"{{end}}>Blue</option>
          <option value="green"{{if eq .FavColor "green"}} selected="selected"{{end}}>Green</option>
        </select>
      </div>

      <div class="input age">
        <label for="person_age">Age</label>
        <input type="number" min="0" step="1" id="person_age" name="person[age]" value="{{.Age}}" />
      </div>

      <div class="input is_human">
        <input type="hidden" name="is_human" value="0">
        <label for="is_a_human">
          <input id="is_a_human" type="checkbox" name="is_human" value="1"{{if .IsHuman}} checked{{end}}>
          I'm a human
        </label>
      </div>

      <div class="input vehicles">
        <label for="person_vehicles_bike"><input id="person_vehicles_bike" type="checkbox" name="person[vehicles][]" value="Bike"{{if .HasVehicle "Bike"}} checked{{end}}>Bike</label>
        <label for="person_vehicles_car"><input id="person_vehicles_car" type="checkbox" name="person[vehicles][]" value="Car"{{if .HasVehicle "Car"}} checked{{end}}>Car</label>
      </div>

      <div class="input allergies">
        <label for="allergies">Allergies</label>
        <select id="allergies" name="allergies" multiple="multiple">
          <option value="">None</option>
          <option value="peanut"{{if .HasAllergy "peanut"}} selected="selected"{{end}}>Peanut</option>
          <option value="corn"{{if .HasAllergy "corn"}} selected="selected"{{end}}>Corn</option>
          <option value="wheat"{{if .HasAllergy "wheat"}} selected="selected"{{end}}>Wheat</option>
        </select>
      </div>

      <div class="actions">
        <input type="submit" name="commit" value="Update Person" />
      </div>
    </form>
  </body>
</html>
`))

var delayedTmpl = template.Must(template.New("delayed").Parse(`<html>
  <body>
    <div id="notices"></div>
    <script>
      setTimeout(function() {
        var n = document.createElement("div");
        n.className = "notice";
        n.innerHTML = '<span class="message">Saved</span>';
        document.getElementById("notices").appendChild(n);
      }, {{.}});
    </script>
  </body>
</html>
`))
