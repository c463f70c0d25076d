package report

// juneBulletin is a trimmed support page with one dated subsection under
// "More Information" and one list per update.
const juneBulletin = `<html><body><article>
<section class="ocpSection"><h2>More Information</h2>
  <section>
    <h3>Tuesday, June 13, 2023</h3>
    <ul><li><p><b>2023-06 Security Update for Windows Malicious Software Removal Tool (KB890830)</b></p></li></ul>
    <ul><li><p><b>2023-06 Cumulative Update for Windows 11 (KB5027231)</b></p></li></ul>
    <ul><li><p><b>Servicing stack update notes</b></p></li></ul>
    <ul><li><p><b>2023-06 Dynamic Update for Windows 10 (KB5027537)</b></p></li></ul>
  </section>
</section>
</article></body></html>`
