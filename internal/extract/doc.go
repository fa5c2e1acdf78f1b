// Package extract reads customer reviews out of page markup.
//
// Pages are parsed with golang.org/x/net/html, so entities are decoded and
// malformed markup is tolerated. The review widget is recognized by its
// class names:
//
//	<div class="review-card ...">
//	  <p class="font-bold ...">John D.</p>
//	  <span class="material-icons">location_on</span> Austin, TX
//	  <div class="bg-white ... rounded-2xl"><p>Great fast service!</p></div>
//	  <div class="service-tag"><span>Car Lockout</span></div>
//	</div>
//
// BuildCorpus turns the pages found by the site package into a
// model.Corpus ready for auditing.
package extract
